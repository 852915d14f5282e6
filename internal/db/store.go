package db

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rtr-ops/backend/internal/models"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres Repository. A Store returned inside WithTx is bound
// to that transaction.
type Store struct {
	Pool *pgxpool.Pool
	tx   pgx.Tx
}

var _ Repository = (*Store)(nil)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.Pool
}

func (s *Store) WithTx(ctx context.Context, fn func(Repository) error) error {
	var (
		tx  pgx.Tx
		err error
	)
	if s.tx != nil {
		tx, err = s.tx.Begin(ctx)
	} else {
		tx, err = s.Pool.BeginTx(ctx, pgx.TxOptions{})
	}
	if err != nil {
		return wrap(err, "begin")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()
	if err := fn(&Store{Pool: s.Pool, tx: tx}); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateIncident(ctx context.Context, in *models.Incident) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO incidents (name, earliest_report_date, created_by, updated_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, in.Name, in.EarliestReportDate, in.CreatedBy, in.UpdatedBy).Scan(&in.ID, &in.CreatedAt)
	return wrap(err, "insert incident")
}

func (s *Store) CreateWayfinding(ctx context.Context, w *models.Wayfinding) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO wayfindings (location, from_number, from_cardinal, from_street, from_suffix,
			to_number, to_cardinal, to_street, to_suffix, length, width, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id, created_at
	`, w.Location, w.FromNumber, w.FromCardinal, w.FromStreet, w.FromSuffix,
		w.ToNumber, w.ToCardinal, w.ToStreet, w.ToSuffix, w.Length, w.Width, w.CreatedBy, w.UpdatedBy,
	).Scan(&w.ID, &w.CreatedAt)
	return wrap(err, "insert wayfinding")
}

func (s *Store) GetWayfinding(ctx context.Context, id int64) (models.Wayfinding, error) {
	var w models.Wayfinding
	err := s.q().QueryRow(ctx, `
		SELECT id, location, from_number, from_cardinal, from_street, from_suffix,
			to_number, to_cardinal, to_street, to_suffix, length, width, created_by, updated_by, created_at
		FROM wayfindings WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&w.ID, &w.Location, &w.FromNumber, &w.FromCardinal, &w.FromStreet, &w.FromSuffix,
		&w.ToNumber, &w.ToCardinal, &w.ToStreet, &w.ToSuffix, &w.Length, &w.Width, &w.CreatedBy, &w.UpdatedBy, &w.CreatedAt)
	return w, notFound(err, "get wayfinding")
}

func (s *Store) ListQuadrants(ctx context.Context) ([]models.Quadrant, error) {
	rows, err := s.q().Query(ctx, `SELECT id, name FROM quadrants WHERE deleted_at IS NULL ORDER BY id ASC`)
	if err != nil {
		return nil, gerrors.Wrap(err, "list quadrants")
	}
	defer rows.Close()

	var out []models.Quadrant
	for rows.Next() {
		var q models.Quadrant
		if err := rows.Scan(&q.ID, &q.Name); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) FindContractUnitByCode(ctx context.Context, code string) (models.ContractUnit, error) {
	var cu models.ContractUnit
	err := s.q().QueryRow(ctx, `
		SELECT id, item_code, name, cost_per_unit
		FROM contract_units WHERE item_code = $1 AND deleted_at IS NULL
		ORDER BY id ASC LIMIT 1
	`, code).Scan(&cu.ID, &cu.ItemCode, &cu.Name, &cu.CostPerUnit)
	return cu, notFound(err, "find contract unit")
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO tickets (incident_id, quadrant_id, contract_unit_id, wayfinding_id, ticket_code,
			partner_comment, comment_7d, quantity, amount_to_pay, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, created_at, updated_at
	`, t.IncidentID, t.QuadrantID, t.ContractUnitID, t.WayfindingID, t.TicketCode,
		t.PartnerComment, t.Comment7d, t.Quantity, t.AmountToPay, t.CreatedBy, t.UpdatedBy,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return wrap(err, "insert ticket")
}

func (s *Store) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	var (
		t      models.Ticket
		amount decimal.NullDecimal
	)
	err := s.q().QueryRow(ctx, `
		SELECT id, incident_id, quadrant_id, contract_unit_id, wayfinding_id, ticket_code,
			partner_comment, comment_7d, quantity, amount_to_pay, created_by, updated_by, created_at, updated_at
		FROM tickets WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&t.ID, &t.IncidentID, &t.QuadrantID, &t.ContractUnitID, &t.WayfindingID, &t.TicketCode,
		&t.PartnerComment, &t.Comment7d, &t.Quantity, &amount, &t.CreatedBy, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt)
	if amount.Valid {
		t.AmountToPay = &amount.Decimal
	}
	return t, notFound(err, "get ticket")
}

func (s *Store) UpdateTicketComment7d(ctx context.Context, id int64, comment *string, updatedBy string) error {
	tag, err := s.q().Exec(ctx, `
		UPDATE tickets SET comment_7d = $1, updated_by = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`, comment, updatedBy, id)
	if err != nil {
		return wrap(err, "update ticket comment_7d")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) FindAddress(ctx context.Context, a models.Address) (models.Address, error) {
	var out models.Address
	err := s.q().QueryRow(ctx, `
		SELECT id, number, cardinal, street, suffix, created_by, updated_by, created_at
		FROM addresses
		WHERE number IS NOT DISTINCT FROM $1
			AND cardinal IS NOT DISTINCT FROM $2
			AND street IS NOT DISTINCT FROM $3
			AND suffix IS NOT DISTINCT FROM $4
			AND deleted_at IS NULL
		ORDER BY id ASC LIMIT 1
	`, a.Number, a.Cardinal, a.Street, a.Suffix).Scan(&out.ID, &out.Number, &out.Cardinal, &out.Street, &out.Suffix,
		&out.CreatedBy, &out.UpdatedBy, &out.CreatedAt)
	return out, notFound(err, "find address")
}

func (s *Store) CreateAddress(ctx context.Context, a *models.Address) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO addresses (number, cardinal, street, suffix, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at
	`, a.Number, a.Cardinal, a.Street, a.Suffix, a.CreatedBy, a.UpdatedBy).Scan(&a.ID, &a.CreatedAt)
	return wrap(err, "insert address")
}

func (s *Store) FindTicketAddress(ctx context.Context, ticketID, addressID int64) (models.TicketAddress, error) {
	var ta models.TicketAddress
	err := s.q().QueryRow(ctx, `
		SELECT id, ticket_id, address_id, is_partner, is_7d, created_by, updated_by
		FROM ticket_addresses
		WHERE ticket_id = $1 AND address_id = $2 AND deleted_at IS NULL
	`, ticketID, addressID).Scan(&ta.ID, &ta.TicketID, &ta.AddressID, &ta.IsPartner, &ta.Is7d, &ta.CreatedBy, &ta.UpdatedBy)
	return ta, notFound(err, "find ticket address")
}

func (s *Store) CreateTicketAddress(ctx context.Context, ta *models.TicketAddress) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO ticket_addresses (ticket_id, address_id, is_partner, is_7d, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, ta.TicketID, ta.AddressID, ta.IsPartner, ta.Is7d, ta.CreatedBy, ta.UpdatedBy).Scan(&ta.ID)
	return wrap(err, "insert ticket address")
}

const permitColumns = `id, permit_number, start_date, expire_date, status, created_by, updated_by, created_at, updated_at`

func scanPermit(row pgx.Row) (models.Permit, error) {
	var p models.Permit
	err := row.Scan(&p.ID, &p.PermitNumber, &p.StartDate, &p.ExpireDate, &p.Status,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) FindPermitByNumber(ctx context.Context, number string) (models.Permit, error) {
	p, err := scanPermit(s.q().QueryRow(ctx, `
		SELECT `+permitColumns+` FROM permits
		WHERE permit_number = $1 AND deleted_at IS NULL
		ORDER BY id ASC LIMIT 1
	`, number))
	return p, notFound(err, "find permit")
}

func (s *Store) GetPermit(ctx context.Context, id int64) (models.Permit, error) {
	p, err := scanPermit(s.q().QueryRow(ctx, `
		SELECT `+permitColumns+` FROM permits WHERE id = $1 AND deleted_at IS NULL
	`, id))
	return p, notFound(err, "get permit")
}

func (s *Store) ListPermits(ctx context.Context) ([]models.Permit, error) {
	return s.queryPermits(ctx, `SELECT `+permitColumns+` FROM permits WHERE deleted_at IS NULL ORDER BY id ASC`)
}

func (s *Store) ListTicketPermits(ctx context.Context, ticketID int64) ([]models.Permit, error) {
	return s.queryPermits(ctx, `
		SELECT p.id, p.permit_number, p.start_date, p.expire_date, p.status, p.created_by, p.updated_by, p.created_at, p.updated_at
		FROM permits p
		JOIN permited_tickets pt ON pt.permit_id = p.id AND pt.deleted_at IS NULL
		WHERE pt.ticket_id = $1 AND p.deleted_at IS NULL
		ORDER BY p.id ASC
	`, ticketID)
}

func (s *Store) queryPermits(ctx context.Context, sql string, args ...any) ([]models.Permit, error) {
	rows, err := s.q().Query(ctx, sql, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "query permits")
	}
	defer rows.Close()

	var out []models.Permit
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePermit(ctx context.Context, p *models.Permit) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO permits (permit_number, start_date, expire_date, status, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at
	`, p.PermitNumber, p.StartDate, p.ExpireDate, p.Status, p.CreatedBy, p.UpdatedBy).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return wrap(err, "insert permit")
}

func (s *Store) UpdatePermit(ctx context.Context, p *models.Permit) error {
	err := s.q().QueryRow(ctx, `
		UPDATE permits SET start_date = $1, expire_date = $2, status = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $5 AND deleted_at IS NULL
		RETURNING updated_at
	`, p.StartDate, p.ExpireDate, p.Status, p.UpdatedBy, p.ID).Scan(&p.UpdatedAt)
	return notFound(err, "update permit")
}

func (s *Store) FindPermitedTicket(ctx context.Context, permitID, ticketID int64) (models.PermitedTicket, error) {
	var pt models.PermitedTicket
	err := s.q().QueryRow(ctx, `
		SELECT id, permit_id, ticket_id, created_by, updated_by
		FROM permited_tickets
		WHERE permit_id = $1 AND ticket_id = $2 AND deleted_at IS NULL
	`, permitID, ticketID).Scan(&pt.ID, &pt.PermitID, &pt.TicketID, &pt.CreatedBy, &pt.UpdatedBy)
	return pt, notFound(err, "find permited ticket")
}

func (s *Store) CreatePermitedTicket(ctx context.Context, pt *models.PermitedTicket) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO permited_tickets (permit_id, ticket_id, created_by, updated_by)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, pt.PermitID, pt.TicketID, pt.CreatedBy, pt.UpdatedBy).Scan(&pt.ID)
	return wrap(err, "insert permited ticket")
}

func (s *Store) ListPermitTicketIDs(ctx context.Context, permitID int64) ([]int64, error) {
	rows, err := s.q().Query(ctx, `
		SELECT pt.ticket_id
		FROM permited_tickets pt
		JOIN tickets t ON t.id = pt.ticket_id AND t.deleted_at IS NULL
		WHERE pt.permit_id = $1 AND pt.deleted_at IS NULL
		ORDER BY pt.ticket_id ASC
	`, permitID)
	if err != nil {
		return nil, gerrors.Wrap(err, "list permit tickets")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) SoftDelete(ctx context.Context, entity Entity, id int64, updatedBy string) error {
	if !entity.Valid() {
		return fmt.Errorf("soft delete: unknown entity %q", entity)
	}
	// entity is whitelisted by Valid.
	tag, err := s.q().Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET deleted_at = NOW(), updated_by = $1 WHERE id = $2 AND deleted_at IS NULL`,
		pgx.Identifier{string(entity)}.Sanitize()), updatedBy, id)
	if err != nil {
		return gerrors.Wrapf(err, "soft delete %s", entity)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateImportRun(ctx context.Context, run *models.ImportRun) error {
	err := s.q().QueryRow(ctx, `
		INSERT INTO import_runs (id, source_name, status, started_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING started_at
	`, run.ID, run.SourceName, run.Status).Scan(&run.StartedAt)
	return wrap(err, "insert import run")
}

func (s *Store) FinishImportRun(ctx context.Context, id string, status string, summary []byte) error {
	_, err := s.q().Exec(ctx, `UPDATE import_runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, id)
	return wrap(err, "finish import run")
}

func (s *Store) GetLatestImportRun(ctx context.Context) (models.ImportRun, error) {
	var run models.ImportRun
	err := s.q().QueryRow(ctx, `
		SELECT id, source_name, status, summary, started_at, finished_at
		FROM import_runs ORDER BY started_at DESC LIMIT 1
	`).Scan(&run.ID, &run.SourceName, &run.Status, &run.Summary, &run.StartedAt, &run.FinishedAt)
	return run, notFound(err, "latest import run")
}

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return gerrors.Wrap(err, op)
}

func notFound(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return gerrors.Wrap(err, op)
}
