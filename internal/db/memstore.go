package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtr-ops/backend/internal/models"
)

type memState struct {
	nextID          int64
	incidents       map[int64]models.Incident
	wayfindings     map[int64]models.Wayfinding
	addresses       map[int64]models.Address
	quadrants       map[int64]models.Quadrant
	contractUnits   map[int64]models.ContractUnit
	tickets         map[int64]models.Ticket
	ticketAddresses map[int64]models.TicketAddress
	permits         map[int64]models.Permit
	permitedTickets map[int64]models.PermitedTicket
	runs            []models.ImportRun
}

func newMemState() *memState {
	return &memState{
		incidents:       map[int64]models.Incident{},
		wayfindings:     map[int64]models.Wayfinding{},
		addresses:       map[int64]models.Address{},
		quadrants:       map[int64]models.Quadrant{},
		contractUnits:   map[int64]models.ContractUnit{},
		tickets:         map[int64]models.Ticket{},
		ticketAddresses: map[int64]models.TicketAddress{},
		permits:         map[int64]models.Permit{},
		permitedTickets: map[int64]models.PermitedTicket{},
	}
}

// clone copies every table. Row structs are copied by value; pointer fields
// are never mutated in place, so sharing them is fine.
func (s *memState) clone() *memState {
	return &memState{
		nextID:          s.nextID,
		incidents:       maps.Clone(s.incidents),
		wayfindings:     maps.Clone(s.wayfindings),
		addresses:       maps.Clone(s.addresses),
		quadrants:       maps.Clone(s.quadrants),
		contractUnits:   maps.Clone(s.contractUnits),
		tickets:         maps.Clone(s.tickets),
		ticketAddresses: maps.Clone(s.ticketAddresses),
		permits:         maps.Clone(s.permits),
		permitedTickets: maps.Clone(s.permitedTickets),
		runs:            slices.Clone(s.runs),
	}
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// MemStore is an in-memory Repository. WithTx works on a copy of the tables
// and swaps it in on success, so failed units of work leave no trace. It
// assumes a single writer.
type MemStore struct {
	mu    sync.Mutex
	state *memState

	// Fail is consulted before every write with the operation name; a
	// non-nil error fails that write.
	Fail func(op string) error
	Now  func() time.Time
}

var _ Repository = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{state: newMemState(), Now: time.Now}
}

func (m *MemStore) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *MemStore) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op)
}

func (m *MemStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	m.mu.Lock()
	child := &MemStore{state: m.state.clone(), Fail: m.Fail, Now: m.Now}
	m.mu.Unlock()

	if err := fn(child); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = child.state
	m.mu.Unlock()
	return nil
}

func (m *MemStore) AddQuadrant(name string) models.Quadrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := models.Quadrant{ID: m.state.id(), Name: name}
	m.state.quadrants[q.ID] = q
	return q
}

func (m *MemStore) AddContractUnit(code, name string, cost decimal.Decimal) models.ContractUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	cu := models.ContractUnit{ID: m.state.id(), ItemCode: code, Name: name, CostPerUnit: cost}
	m.state.contractUnits[cu.ID] = cu
	return cu
}

func (m *MemStore) CreateIncident(ctx context.Context, in *models.Incident) error {
	if err := m.fail("CreateIncident"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = m.state.id()
	in.CreatedAt = m.now()
	m.state.incidents[in.ID] = *in
	return nil
}

func (m *MemStore) CreateWayfinding(ctx context.Context, w *models.Wayfinding) error {
	if err := m.fail("CreateWayfinding"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = m.state.id()
	w.CreatedAt = m.now()
	m.state.wayfindings[w.ID] = *w
	return nil
}

func (m *MemStore) GetWayfinding(ctx context.Context, id int64) (models.Wayfinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.state.wayfindings[id]
	if !ok || w.DeletedAt != nil {
		return models.Wayfinding{}, ErrNotFound
	}
	return w, nil
}

func (m *MemStore) ListQuadrants(ctx context.Context) ([]models.Quadrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Quadrant
	for _, q := range sortedValues(m.state.quadrants) {
		if q.DeletedAt == nil {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *MemStore) FindContractUnitByCode(ctx context.Context, code string) (models.ContractUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cu := range sortedValues(m.state.contractUnits) {
		if cu.DeletedAt == nil && cu.ItemCode == code {
			return cu, nil
		}
	}
	return models.ContractUnit{}, ErrNotFound
}

func (m *MemStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	if err := m.fail("CreateTicket"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.incidents[t.IncidentID]; !ok {
		return fmt.Errorf("insert ticket: incident %d does not exist", t.IncidentID)
	}
	if _, ok := m.state.wayfindings[t.WayfindingID]; !ok {
		return fmt.Errorf("insert ticket: wayfinding %d does not exist", t.WayfindingID)
	}
	t.ID = m.state.id()
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.state.tickets[t.ID] = *t
	return nil
}

func (m *MemStore) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.tickets[id]
	if !ok || t.DeletedAt != nil {
		return models.Ticket{}, ErrNotFound
	}
	return t, nil
}

func (m *MemStore) UpdateTicketComment7d(ctx context.Context, id int64, comment *string, updatedBy string) error {
	if err := m.fail("UpdateTicketComment7d"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.tickets[id]
	if !ok || t.DeletedAt != nil {
		return ErrNotFound
	}
	t.Comment7d = comment
	t.UpdatedBy = updatedBy
	t.UpdatedAt = m.now()
	m.state.tickets[id] = t
	return nil
}

func (m *MemStore) FindAddress(ctx context.Context, a models.Address) (models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range sortedValues(m.state.addresses) {
		if existing.DeletedAt == nil && existing.SameComponents(a) {
			return existing, nil
		}
	}
	return models.Address{}, ErrNotFound
}

func (m *MemStore) CreateAddress(ctx context.Context, a *models.Address) error {
	if err := m.fail("CreateAddress"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.state.addresses {
		if existing.DeletedAt == nil && existing.SameComponents(*a) {
			return fmt.Errorf("insert address: duplicate key violates addresses_components_live")
		}
	}
	a.ID = m.state.id()
	a.CreatedAt = m.now()
	m.state.addresses[a.ID] = *a
	return nil
}

func (m *MemStore) FindTicketAddress(ctx context.Context, ticketID, addressID int64) (models.TicketAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ta := range sortedValues(m.state.ticketAddresses) {
		if ta.DeletedAt == nil && ta.TicketID == ticketID && ta.AddressID == addressID {
			return ta, nil
		}
	}
	return models.TicketAddress{}, ErrNotFound
}

func (m *MemStore) CreateTicketAddress(ctx context.Context, ta *models.TicketAddress) error {
	if err := m.fail("CreateTicketAddress"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ta.ID = m.state.id()
	m.state.ticketAddresses[ta.ID] = *ta
	return nil
}

func (m *MemStore) FindPermitByNumber(ctx context.Context, number string) (models.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range sortedValues(m.state.permits) {
		if p.DeletedAt == nil && p.PermitNumber == number {
			return p, nil
		}
	}
	return models.Permit{}, ErrNotFound
}

func (m *MemStore) GetPermit(ctx context.Context, id int64) (models.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.permits[id]
	if !ok || p.DeletedAt != nil {
		return models.Permit{}, ErrNotFound
	}
	return p, nil
}

func (m *MemStore) ListPermits(ctx context.Context) ([]models.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permit
	for _, p := range sortedValues(m.state.permits) {
		if p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemStore) CreatePermit(ctx context.Context, p *models.Permit) error {
	if err := m.fail("CreatePermit"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.state.permits {
		if existing.DeletedAt == nil && existing.PermitNumber == p.PermitNumber {
			return fmt.Errorf("insert permit: duplicate key violates permits_number_live")
		}
	}
	p.ID = m.state.id()
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.state.permits[p.ID] = *p
	return nil
}

func (m *MemStore) UpdatePermit(ctx context.Context, p *models.Permit) error {
	if err := m.fail("UpdatePermit"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.state.permits[p.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrNotFound
	}
	existing.StartDate = p.StartDate
	existing.ExpireDate = p.ExpireDate
	existing.Status = p.Status
	existing.UpdatedBy = p.UpdatedBy
	existing.UpdatedAt = m.now()
	p.UpdatedAt = existing.UpdatedAt
	m.state.permits[p.ID] = existing
	return nil
}

func (m *MemStore) FindPermitedTicket(ctx context.Context, permitID, ticketID int64) (models.PermitedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pt := range sortedValues(m.state.permitedTickets) {
		if pt.DeletedAt == nil && pt.PermitID == permitID && pt.TicketID == ticketID {
			return pt, nil
		}
	}
	return models.PermitedTicket{}, ErrNotFound
}

func (m *MemStore) CreatePermitedTicket(ctx context.Context, pt *models.PermitedTicket) error {
	if err := m.fail("CreatePermitedTicket"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pt.ID = m.state.id()
	m.state.permitedTickets[pt.ID] = *pt
	return nil
}

func (m *MemStore) ListPermitTicketIDs(ctx context.Context, permitID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, pt := range sortedValues(m.state.permitedTickets) {
		if pt.DeletedAt != nil || pt.PermitID != permitID {
			continue
		}
		if t, ok := m.state.tickets[pt.TicketID]; ok && t.DeletedAt == nil {
			out = append(out, pt.TicketID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *MemStore) ListTicketPermits(ctx context.Context, ticketID int64) ([]models.Permit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Permit
	for _, pt := range sortedValues(m.state.permitedTickets) {
		if pt.DeletedAt != nil || pt.TicketID != ticketID {
			continue
		}
		if p, ok := m.state.permits[pt.PermitID]; ok && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Permit) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *MemStore) SoftDelete(ctx context.Context, entity Entity, id int64, updatedBy string) error {
	if !entity.Valid() {
		return fmt.Errorf("soft delete: unknown entity %q", entity)
	}
	if err := m.fail("SoftDelete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	switch entity {
	case EntityIncident:
		return softDelete(m.state.incidents, id, func(v *models.Incident) **time.Time { return &v.DeletedAt }, now)
	case EntityWayfinding:
		return softDelete(m.state.wayfindings, id, func(v *models.Wayfinding) **time.Time { return &v.DeletedAt }, now)
	case EntityAddress:
		return softDelete(m.state.addresses, id, func(v *models.Address) **time.Time { return &v.DeletedAt }, now)
	case EntityTicket:
		return softDelete(m.state.tickets, id, func(v *models.Ticket) **time.Time { return &v.DeletedAt }, now)
	default:
		return softDelete(m.state.permits, id, func(v *models.Permit) **time.Time { return &v.DeletedAt }, now)
	}
}

func softDelete[T any](table map[int64]T, id int64, deletedAt func(*T) **time.Time, now time.Time) error {
	row, ok := table[id]
	if !ok || *deletedAt(&row) != nil {
		return ErrNotFound
	}
	*deletedAt(&row) = &now
	table[id] = row
	return nil
}

func (m *MemStore) CreateImportRun(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.StartedAt = m.now()
	m.state.runs = append(m.state.runs, *run)
	return nil
}

func (m *MemStore) FinishImportRun(ctx context.Context, id string, status string, summary []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.state.runs {
		if m.state.runs[i].ID == id {
			now := m.now()
			m.state.runs[i].Status = status
			m.state.runs[i].Summary = summary
			m.state.runs[i].FinishedAt = &now
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemStore) GetLatestImportRun(ctx context.Context) (models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.state.runs) == 0 {
		return models.ImportRun{}, ErrNotFound
	}
	return m.state.runs[len(m.state.runs)-1], nil
}

// Snapshot accessors return every row, soft-deleted ones included, ordered by id.

func (m *MemStore) Incidents() []models.Incident {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.incidents)
}

func (m *MemStore) Wayfindings() []models.Wayfinding {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.wayfindings)
}

func (m *MemStore) Addresses() []models.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.addresses)
}

func (m *MemStore) Tickets() []models.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.tickets)
}

func (m *MemStore) TicketAddresses() []models.TicketAddress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.ticketAddresses)
}

func (m *MemStore) Permits() []models.Permit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.permits)
}

func (m *MemStore) PermitedTickets() []models.PermitedTicket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.state.permitedTickets)
}

// FailOn returns a Fail hook that fails every write named op.
func FailOn(op string, err error) func(string) error {
	return func(name string) error {
		if name == op {
			return err
		}
		return nil
	}
}

func sortedValues[T any](table map[int64]T) []T {
	keys := make([]int64, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, table[k])
	}
	return out
}
