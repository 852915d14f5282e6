package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/metrics"
	"github.com/rtr-ops/backend/internal/models"
)

type PermitInput struct {
	Number     string     `json:"permit_number"`
	StartDate  *time.Time `json:"start_date"`
	ExpireDate *time.Time `json:"expire_date"`
}

type AnnotationResult struct {
	TicketID int64   `json:"ticket_id"`
	PermitID int64   `json:"permit_id"`
	Rule     string  `json:"rule,omitempty"`
	Before   *string `json:"before"`
	After    *string `json:"after"`
	Changed  bool    `json:"changed"`
	Error    string  `json:"error,omitempty"`
}

type PermitOutcome struct {
	PermitID    int64               `json:"permit_id"`
	Number      string              `json:"permit_number"`
	Created     bool                `json:"created"`
	Status      models.PermitStatus `json:"status"`
	Annotations []AnnotationResult  `json:"annotations"`
}

type RefreshSummary struct {
	Permits       int `json:"permits"`
	StatusChanged int `json:"status_changed"`
	Annotated     int `json:"annotated"`
	GuardFailures int `json:"guard_failures"`
}

// Lifecycle derives permit status from the expiry date and keeps ticket
// comment_7d annotations in line with it.
type Lifecycle struct {
	Repo     db.Repository
	Logger   zerolog.Logger
	Location *time.Location
	Window   int
}

func (l *Lifecycle) location() *time.Location {
	if l.Location == nil {
		return time.UTC
	}
	return l.Location
}

func (l *Lifecycle) window() int {
	if l.Window <= 0 {
		return DefaultExpiryWindowDays
	}
	return l.Window
}

// StatusOf computes a permit's status on read, ignoring the stored value.
func (l *Lifecycle) StatusOf(p models.Permit, asOf time.Time) models.PermitStatus {
	return DeriveStatus(p.ExpireDate, asOf, l.location())
}

// UpsertPermit finds the permit by number or creates it, links ticketID to
// it and re-runs the annotation guard for every ticket on the permit. An
// empty permit number is a no-op.
func (l *Lifecycle) UpsertPermit(ctx context.Context, repo db.Repository, ticketID int64, in PermitInput, audit models.Audit, asOf time.Time) (*PermitOutcome, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return nil, nil
	}
	status := DeriveStatus(in.ExpireDate, asOf, l.location())

	permit, err := repo.FindPermitByNumber(ctx, number)
	created := false
	switch {
	case err == nil:
		permit.StartDate = in.StartDate
		permit.ExpireDate = in.ExpireDate
		permit.Status = status
		permit.UpdatedBy = audit.UpdatedBy
		if err := repo.UpdatePermit(ctx, &permit); err != nil {
			return nil, fmt.Errorf("update permit %s: %w", number, err)
		}
	case errors.Is(err, db.ErrNotFound):
		permit = models.Permit{
			PermitNumber: number,
			StartDate:    in.StartDate,
			ExpireDate:   in.ExpireDate,
			Status:       status,
			CreatedBy:    audit.CreatedBy,
			UpdatedBy:    audit.UpdatedBy,
		}
		if err := repo.CreatePermit(ctx, &permit); err != nil {
			return nil, fmt.Errorf("create permit %s: %w", number, err)
		}
		created = true
	default:
		return nil, fmt.Errorf("find permit %s: %w", number, err)
	}

	if ticketID > 0 {
		if err := linkPermit(ctx, repo, permit.ID, ticketID, audit); err != nil {
			return nil, err
		}
	}

	annotations, err := l.applyGuards(ctx, repo, permit, audit, asOf)
	if err != nil {
		return nil, err
	}
	return &PermitOutcome{
		PermitID:    permit.ID,
		Number:      permit.PermitNumber,
		Created:     created,
		Status:      status,
		Annotations: annotations,
	}, nil
}

// UpsertPermitForTicket is the standalone entry point: one unit of work
// against the Lifecycle's repository. A zero ticketID saves the permit and
// re-runs the guards of the tickets already linked to it.
func (l *Lifecycle) UpsertPermitForTicket(ctx context.Context, ticketID int64, in PermitInput, audit models.Audit, asOf time.Time) (*PermitOutcome, error) {
	var out *PermitOutcome
	err := l.Repo.WithTx(ctx, func(repo db.Repository) error {
		if ticketID != 0 {
			if _, err := repo.GetTicket(ctx, ticketID); err != nil {
				return fmt.Errorf("ticket %d: %w", ticketID, err)
			}
		}
		var err error
		out, err = l.UpsertPermit(ctx, repo, ticketID, in, audit, asOf)
		return err
	})
	return out, err
}

func linkPermit(ctx context.Context, repo db.Repository, permitID, ticketID int64, audit models.Audit) error {
	_, err := repo.FindPermitedTicket(ctx, permitID, ticketID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("find permited ticket: %w", err)
	}
	pt := models.PermitedTicket{PermitID: permitID, TicketID: ticketID, CreatedBy: audit.CreatedBy, UpdatedBy: audit.UpdatedBy}
	if err := repo.CreatePermitedTicket(ctx, &pt); err != nil {
		return fmt.Errorf("link permit %d to ticket %d: %w", permitID, ticketID, err)
	}
	return nil
}

// applyGuards evaluates every ticket linked to the permit. Each ticket runs
// in its own nested unit of work; a failure is logged and recorded on that
// ticket's result without stopping its siblings.
func (l *Lifecycle) applyGuards(ctx context.Context, repo db.Repository, permit models.Permit, audit models.Audit, asOf time.Time) ([]AnnotationResult, error) {
	ticketIDs, err := repo.ListPermitTicketIDs(ctx, permit.ID)
	if err != nil {
		return nil, fmt.Errorf("list tickets of permit %d: %w", permit.ID, err)
	}
	out := make([]AnnotationResult, 0, len(ticketIDs))
	for _, ticketID := range ticketIDs {
		var res AnnotationResult
		err := repo.WithTx(ctx, func(inner db.Repository) error {
			var err error
			res, err = l.evaluateTicket(ctx, inner, ticketID, permit, audit, asOf)
			return err
		})
		if err != nil {
			metrics.GuardFailures.Inc()
			l.Logger.Warn().Err(err).Int64("ticket_id", ticketID).Int64("permit_id", permit.ID).Msg("permit guard failed")
			res = AnnotationResult{TicketID: ticketID, PermitID: permit.ID, Error: err.Error()}
		}
		out = append(out, res)
	}
	return out, nil
}

func (l *Lifecycle) evaluateTicket(ctx context.Context, repo db.Repository, ticketID int64, permit models.Permit, audit models.Audit, asOf time.Time) (res AnnotationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating ticket %d: %v", ticketID, r)
		}
	}()

	ticket, err := repo.GetTicket(ctx, ticketID)
	if err != nil {
		return res, fmt.Errorf("get ticket %d: %w", ticketID, err)
	}
	way, err := repo.GetWayfinding(ctx, ticket.WayfindingID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return res, fmt.Errorf("get wayfinding %d: %w", ticket.WayfindingID, err)
	}

	decision := EvaluateAnnotation(AnnotationInput{
		Current:         ticket.Comment7d,
		Location:        way.Location,
		DaysUntilExpiry: DaysUntilExpiry(permit.ExpireDate, asOf, l.location()),
		Window:          l.window(),
	})
	metrics.PermitAnnotations.WithLabelValues(decision.Rule, strconv.FormatBool(decision.Changed)).Inc()

	res = AnnotationResult{
		TicketID: ticketID,
		PermitID: permit.ID,
		Rule:     decision.Rule,
		Before:   ticket.Comment7d,
		After:    decision.Next,
		Changed:  decision.Changed,
	}
	if !decision.Changed {
		return res, nil
	}
	if err := repo.UpdateTicketComment7d(ctx, ticketID, decision.Next, audit.UpdatedBy); err != nil {
		return res, fmt.Errorf("update comment_7d of ticket %d: %w", ticketID, err)
	}
	l.Logger.Debug().Int64("ticket_id", ticketID).Str("rule", decision.Rule).Msg("ticket annotation updated")
	return res, nil
}

// ReevaluateTicket re-runs the guard for one ticket against each permit
// linked to it, without touching the permits themselves.
func (l *Lifecycle) ReevaluateTicket(ctx context.Context, ticketID int64, audit models.Audit, asOf time.Time) ([]AnnotationResult, error) {
	if _, err := l.Repo.GetTicket(ctx, ticketID); err != nil {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, err)
	}
	permits, err := l.Repo.ListTicketPermits(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list permits of ticket %d: %w", ticketID, err)
	}
	out := make([]AnnotationResult, 0, len(permits))
	for _, p := range permits {
		var res AnnotationResult
		err := l.Repo.WithTx(ctx, func(repo db.Repository) error {
			var err error
			res, err = l.evaluateTicket(ctx, repo, ticketID, p, audit, asOf)
			return err
		})
		if err != nil {
			metrics.GuardFailures.Inc()
			l.Logger.Warn().Err(err).Int64("ticket_id", ticketID).Int64("permit_id", p.ID).Msg("permit guard failed")
			res = AnnotationResult{TicketID: ticketID, PermitID: p.ID, Error: err.Error()}
		}
		out = append(out, res)
	}
	return out, nil
}

// RefreshPermits recomputes the stored status of every live permit and
// re-runs the guard on their tickets.
func (l *Lifecycle) RefreshPermits(ctx context.Context, audit models.Audit, asOf time.Time) (RefreshSummary, error) {
	permits, err := l.Repo.ListPermits(ctx)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("list permits: %w", err)
	}
	var sum RefreshSummary
	for _, p := range permits {
		sum.Permits++
		status := DeriveStatus(p.ExpireDate, asOf, l.location())
		if status != p.Status {
			p.Status = status
			p.UpdatedBy = audit.UpdatedBy
			if err := l.Repo.UpdatePermit(ctx, &p); err != nil {
				l.Logger.Error().Err(err).Str("permit_number", p.PermitNumber).Msg("permit status refresh failed")
				continue
			}
			sum.StatusChanged++
		}
		results, err := l.applyGuards(ctx, l.Repo, p, audit, asOf)
		if err != nil {
			l.Logger.Error().Err(err).Str("permit_number", p.PermitNumber).Msg("permit guard sweep failed")
			continue
		}
		for _, r := range results {
			switch {
			case r.Error != "":
				sum.GuardFailures++
			case r.Changed:
				sum.Annotated++
			}
		}
	}
	l.Logger.Info().Int("permits", sum.Permits).Int("status_changed", sum.StatusChanged).Int("annotated", sum.Annotated).Msg("permit refresh finished")
	return sum, nil
}
