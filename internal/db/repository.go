package db

import (
	"context"
	"errors"

	"github.com/rtr-ops/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

// Entity names a soft-deletable table.
type Entity string

const (
	EntityIncident   Entity = "incidents"
	EntityWayfinding Entity = "wayfindings"
	EntityAddress    Entity = "addresses"
	EntityTicket     Entity = "tickets"
	EntityPermit     Entity = "permits"
)

func (e Entity) Valid() bool {
	switch e {
	case EntityIncident, EntityWayfinding, EntityAddress, EntityTicket, EntityPermit:
		return true
	}
	return false
}

// Repository is the relational contract of the reconciliation core. Lookups
// never return soft-deleted rows; Find*/Get* return ErrNotFound when no live
// row matches.
type Repository interface {
	CreateIncident(ctx context.Context, in *models.Incident) error
	CreateWayfinding(ctx context.Context, w *models.Wayfinding) error
	GetWayfinding(ctx context.Context, id int64) (models.Wayfinding, error)

	ListQuadrants(ctx context.Context) ([]models.Quadrant, error)
	FindContractUnitByCode(ctx context.Context, code string) (models.ContractUnit, error)

	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	UpdateTicketComment7d(ctx context.Context, id int64, comment *string, updatedBy string) error

	FindAddress(ctx context.Context, a models.Address) (models.Address, error)
	CreateAddress(ctx context.Context, a *models.Address) error
	FindTicketAddress(ctx context.Context, ticketID, addressID int64) (models.TicketAddress, error)
	CreateTicketAddress(ctx context.Context, ta *models.TicketAddress) error

	FindPermitByNumber(ctx context.Context, number string) (models.Permit, error)
	GetPermit(ctx context.Context, id int64) (models.Permit, error)
	ListPermits(ctx context.Context) ([]models.Permit, error)
	CreatePermit(ctx context.Context, p *models.Permit) error
	UpdatePermit(ctx context.Context, p *models.Permit) error
	FindPermitedTicket(ctx context.Context, permitID, ticketID int64) (models.PermitedTicket, error)
	CreatePermitedTicket(ctx context.Context, pt *models.PermitedTicket) error
	ListPermitTicketIDs(ctx context.Context, permitID int64) ([]int64, error)
	ListTicketPermits(ctx context.Context, ticketID int64) ([]models.Permit, error)

	SoftDelete(ctx context.Context, entity Entity, id int64, updatedBy string) error

	CreateImportRun(ctx context.Context, run *models.ImportRun) error
	FinishImportRun(ctx context.Context, id string, status string, summary []byte) error
	GetLatestImportRun(ctx context.Context) (models.ImportRun, error)

	// WithTx runs fn in a unit of work. Nested calls become savepoints, so an
	// inner failure only discards the inner writes.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
