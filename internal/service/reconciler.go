package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/extract"
	"github.com/rtr-ops/backend/internal/models"
	"github.com/rtr-ops/backend/internal/sheet"
)

var ErrInvalidRow = errors.New("invalid row")

var validate = validator.New(validator.WithRequiredStructEnabled())

// RowInput is the typed projection of one extract row.
type RowInput struct {
	WorkOrder      string `validate:"required"`
	TicketCode     string
	AddressText    string `validate:"required"`
	Address        extract.Parsed[extract.Address]
	Location       string
	From           extract.Parsed[extract.Address]
	To             extract.Parsed[extract.Address]
	Dimensions     extract.Parsed[extract.Dimensions]
	Quadrant       string
	ItemCode       string
	Quantity       extract.Parsed[decimal.Decimal]
	PermitNumber   string
	PermitStart    extract.Parsed[time.Time]
	PermitExpire   extract.Parsed[time.Time]
	ReportedDate   extract.Parsed[time.Time]
	PartnerComment *string
}

// ParseRow reads one row through the column map. It never fails; fields
// that do not parse keep their raw text in the Parsed result.
func ParseRow(cols sheet.ColumnMap, row []string, date1904 bool) RowInput {
	cell := func(field string) string { return cols.Cell(row, field) }
	return RowInput{
		WorkOrder:      cell(sheet.FieldWorkOrder),
		TicketCode:     cell(sheet.FieldTicketCode),
		AddressText:    cell(sheet.FieldAddress),
		Address:        extract.ParseAddress(cell(sheet.FieldAddress)),
		Location:       cell(sheet.FieldLocation),
		From:           extract.ParseRangeAddress(cell(sheet.FieldFromStreet)),
		To:             extract.ParseRangeAddress(cell(sheet.FieldToStreet)),
		Dimensions:     extract.ParseDimensions(cell(sheet.FieldDimensions)),
		Quadrant:       cell(sheet.FieldQuadrant),
		ItemCode:       cell(sheet.FieldItemCode),
		Quantity:       extract.Decimal(cell(sheet.FieldQuantity)),
		PermitNumber:   cell(sheet.FieldPermitNumber),
		PermitStart:    extract.Date(cell(sheet.FieldPermitStart), date1904),
		PermitExpire:   extract.Date(cell(sheet.FieldPermitExpire), date1904),
		ReportedDate:   extract.Date(cell(sheet.FieldReportedDate), date1904),
		PartnerComment: extract.Text(cell(sheet.FieldPartnerComment)),
	}
}

// Degraded lists the fields whose text could not be parsed.
func (in RowInput) Degraded() []string {
	var out []string
	add := func(name string, st extract.State) {
		if st == extract.Unparsed {
			out = append(out, name)
		}
	}
	add(sheet.FieldAddress, in.Address.State)
	add(sheet.FieldFromStreet, in.From.State)
	add(sheet.FieldToStreet, in.To.State)
	add(sheet.FieldDimensions, in.Dimensions.State)
	add(sheet.FieldQuantity, in.Quantity.State)
	add(sheet.FieldPermitStart, in.PermitStart.State)
	add(sheet.FieldPermitExpire, in.PermitExpire.State)
	add(sheet.FieldReportedDate, in.ReportedDate.State)
	return out
}

type RowResult struct {
	IncidentID      int64            `json:"incident_id"`
	WayfindingID    int64            `json:"wayfinding_id"`
	TicketID        int64            `json:"ticket_id"`
	AddressID       int64            `json:"address_id"`
	AddressCreated  bool             `json:"address_created"`
	TicketAddressID int64            `json:"ticket_address_id"`
	QuadrantID      *int64           `json:"quadrant_id"`
	QuadrantTier    string           `json:"quadrant_tier,omitempty"`
	ContractUnitID  *int64           `json:"contract_unit_id"`
	Quantity        decimal.Decimal  `json:"quantity"`
	AmountToPay     *decimal.Decimal `json:"amount_to_pay"`
	Permit          *PermitOutcome   `json:"permit,omitempty"`
	Degraded        []string         `json:"degraded,omitempty"`
}

// Reconciler turns one parsed row into a linked ticket.
type Reconciler struct {
	Lifecycle *Lifecycle
	Matchers  []QuadrantMatcher
	Logger    zerolog.Logger
}

// ReconcileRow runs the row pipeline against repo: incident, wayfinding,
// quadrant, contract unit, ticket, address and permit. It stops at the
// first failing step; whether earlier writes survive depends on repo
// being a unit of work or not.
func (r *Reconciler) ReconcileRow(ctx context.Context, repo db.Repository, in RowInput, audit models.Audit, asOf time.Time) (RowResult, error) {
	if err := validate.Struct(audit); err != nil {
		return RowResult{}, errors.Wrap(stderrors.Join(ErrInvalidRow, err), "audit")
	}
	if err := validate.Struct(in); err != nil {
		return RowResult{}, errors.Wrap(stderrors.Join(ErrInvalidRow, err), "row")
	}
	res := RowResult{Degraded: in.Degraded()}

	incident := models.Incident{
		Name:               in.WorkOrder,
		EarliestReportDate: in.ReportedDate.Ptr(),
		CreatedBy:          audit.CreatedBy,
		UpdatedBy:          audit.UpdatedBy,
	}
	if err := repo.CreateIncident(ctx, &incident); err != nil {
		return res, errors.Wrap(err, "create incident")
	}
	res.IncidentID = incident.ID

	way := newWayfinding(in, audit)
	if err := repo.CreateWayfinding(ctx, &way); err != nil {
		return res, errors.Wrap(err, "create wayfinding")
	}
	res.WayfindingID = way.ID

	if in.Quadrant != "" {
		quadrants, err := repo.ListQuadrants(ctx)
		if err != nil {
			return res, errors.Wrap(err, "list quadrants")
		}
		if q, tier := MatchQuadrant(in.Quadrant, quadrants, r.Matchers...); q != nil {
			res.QuadrantID = &q.ID
			res.QuadrantTier = tier
		}
	}

	var unit *models.ContractUnit
	if in.ItemCode != "" {
		cu, err := repo.FindContractUnitByCode(ctx, in.ItemCode)
		switch {
		case err == nil:
			unit = &cu
			res.ContractUnitID = &cu.ID
		case !stderrors.Is(err, db.ErrNotFound):
			return res, errors.Wrap(err, "find contract unit")
		}
	}

	res.Quantity = billableQuantity(in.Quantity)
	if unit != nil {
		amount := unit.CostPerUnit.Mul(res.Quantity)
		res.AmountToPay = &amount
	}

	ticket := models.Ticket{
		IncidentID:     incident.ID,
		QuadrantID:     res.QuadrantID,
		ContractUnitID: res.ContractUnitID,
		WayfindingID:   way.ID,
		TicketCode:     in.TicketCode,
		PartnerComment: in.PartnerComment,
		Quantity:       res.Quantity,
		AmountToPay:    res.AmountToPay,
		CreatedBy:      audit.CreatedBy,
		UpdatedBy:      audit.UpdatedBy,
	}
	if err := repo.CreateTicket(ctx, &ticket); err != nil {
		return res, errors.Wrap(err, "create ticket")
	}
	res.TicketID = ticket.ID

	addr, created, err := findOrCreateAddress(ctx, repo, in.Address.Value, audit)
	if err != nil {
		return res, err
	}
	res.AddressID = addr.ID
	res.AddressCreated = created

	ta, err := findOrCreateTicketAddress(ctx, repo, ticket.ID, addr.ID, audit)
	if err != nil {
		return res, err
	}
	res.TicketAddressID = ta.ID

	if r.Lifecycle != nil {
		out, err := r.Lifecycle.UpsertPermit(ctx, repo, ticket.ID, PermitInput{
			Number:     in.PermitNumber,
			StartDate:  in.PermitStart.Ptr(),
			ExpireDate: in.PermitExpire.Ptr(),
		}, audit, asOf)
		if err != nil {
			return res, errors.Wrap(err, "upsert permit")
		}
		res.Permit = out
	}
	return res, nil
}

func newWayfinding(in RowInput, audit models.Audit) models.Wayfinding {
	way := models.Wayfinding{
		Location:  in.Location,
		CreatedBy: audit.CreatedBy,
		UpdatedBy: audit.UpdatedBy,
	}
	way.FromNumber, way.FromCardinal, way.FromStreet, way.FromSuffix = in.From.Value.Components()
	way.ToNumber, way.ToCardinal, way.ToStreet, way.ToSuffix = in.To.Value.Components()
	if d := in.Dimensions.Ptr(); d != nil {
		way.Length = &d.Length
		way.Width = &d.Width
	}
	return way
}

// billableQuantity is the declared quantity, with zero or missing read as
// one unit.
func billableQuantity(q extract.Parsed[decimal.Decimal]) decimal.Decimal {
	if !q.Ok() || q.Value.IsZero() {
		return decimal.NewFromInt(1)
	}
	return q.Value
}

func findOrCreateAddress(ctx context.Context, repo db.Repository, parsed extract.Address, audit models.Audit) (models.Address, bool, error) {
	var want models.Address
	want.Number, want.Cardinal, want.Street, want.Suffix = parsed.Components()

	existing, err := repo.FindAddress(ctx, want)
	if err == nil {
		return existing, false, nil
	}
	if !stderrors.Is(err, db.ErrNotFound) {
		return models.Address{}, false, errors.Wrap(err, "find address")
	}
	want.CreatedBy = audit.CreatedBy
	want.UpdatedBy = audit.UpdatedBy
	if err := repo.CreateAddress(ctx, &want); err != nil {
		return models.Address{}, false, errors.Wrap(err, "create address")
	}
	return want, true, nil
}

func findOrCreateTicketAddress(ctx context.Context, repo db.Repository, ticketID, addressID int64, audit models.Audit) (models.TicketAddress, error) {
	existing, err := repo.FindTicketAddress(ctx, ticketID, addressID)
	if err == nil {
		return existing, nil
	}
	if !stderrors.Is(err, db.ErrNotFound) {
		return models.TicketAddress{}, errors.Wrap(err, "find ticket address")
	}
	ta := models.TicketAddress{
		TicketID:  ticketID,
		AddressID: addressID,
		IsPartner: true,
		Is7d:      false,
		CreatedBy: audit.CreatedBy,
		UpdatedBy: audit.UpdatedBy,
	}
	if err := repo.CreateTicketAddress(ctx, &ta); err != nil {
		return models.TicketAddress{}, errors.Wrap(err, "create ticket address")
	}
	return ta, nil
}
