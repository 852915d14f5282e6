package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Audit struct {
	CreatedBy string `json:"created_by" validate:"required"`
	UpdatedBy string `json:"updated_by" validate:"required"`
}

type Incident struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	EarliestReportDate *time.Time `json:"earliest_report_date"`
	CreatedBy          string     `json:"created_by"`
	UpdatedBy          string     `json:"updated_by"`
	CreatedAt          time.Time  `json:"created_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

type Wayfinding struct {
	ID           int64      `json:"id"`
	Location     string     `json:"location"`
	FromNumber   *string    `json:"from_number"`
	FromCardinal *string    `json:"from_cardinal"`
	FromStreet   *string    `json:"from_street"`
	FromSuffix   *string    `json:"from_suffix"`
	ToNumber     *string    `json:"to_number"`
	ToCardinal   *string    `json:"to_cardinal"`
	ToStreet     *string    `json:"to_street"`
	ToSuffix     *string    `json:"to_suffix"`
	Length       *int       `json:"length"`
	Width        *int       `json:"width"`
	CreatedBy    string     `json:"created_by"`
	UpdatedBy    string     `json:"updated_by"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

type Address struct {
	ID        int64      `json:"id"`
	Number    *string    `json:"number"`
	Cardinal  *string    `json:"cardinal"`
	Street    *string    `json:"street"`
	Suffix    *string    `json:"suffix"`
	CreatedBy string     `json:"created_by"`
	UpdatedBy string     `json:"updated_by"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// SameComponents reports whether both addresses carry the identical
// {number, cardinal, street, suffix} tuple. Nil only equals nil.
func (a Address) SameComponents(b Address) bool {
	return eqPtr(a.Number, b.Number) && eqPtr(a.Cardinal, b.Cardinal) &&
		eqPtr(a.Street, b.Street) && eqPtr(a.Suffix, b.Suffix)
}

type Quadrant struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type ContractUnit struct {
	ID          int64           `json:"id"`
	ItemCode    string          `json:"item_code"`
	Name        string          `json:"name"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

type Ticket struct {
	ID             int64            `json:"id"`
	IncidentID     int64            `json:"incident_id"`
	QuadrantID     *int64           `json:"quadrant_id"`
	ContractUnitID *int64           `json:"contract_unit_id"`
	WayfindingID   int64            `json:"wayfinding_id"`
	TicketCode     string           `json:"ticket_code"`
	PartnerComment *string          `json:"partner_comment"`
	Comment7d      *string          `json:"comment_7d"`
	Quantity       decimal.Decimal  `json:"quantity"`
	AmountToPay    *decimal.Decimal `json:"amount_to_pay"`
	CreatedBy      string           `json:"created_by"`
	UpdatedBy      string           `json:"updated_by"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty"`
}

type TicketAddress struct {
	ID        int64      `json:"id"`
	TicketID  int64      `json:"ticket_id"`
	AddressID int64      `json:"address_id"`
	IsPartner bool       `json:"is_partner"`
	Is7d      bool       `json:"is_7d"`
	CreatedBy string     `json:"created_by"`
	UpdatedBy string     `json:"updated_by"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type PermitStatus string

const (
	PermitPending      PermitStatus = "PENDING"
	PermitActive       PermitStatus = "ACTIVE"
	PermitExpiresToday PermitStatus = "EXPIRES_TODAY"
	PermitExpired      PermitStatus = "EXPIRED"
)

type Permit struct {
	ID           int64        `json:"id"`
	PermitNumber string       `json:"permit_number"`
	StartDate    *time.Time   `json:"start_date"`
	ExpireDate   *time.Time   `json:"expire_date"`
	Status       PermitStatus `json:"status"`
	CreatedBy    string       `json:"created_by"`
	UpdatedBy    string       `json:"updated_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	DeletedAt    *time.Time   `json:"deleted_at,omitempty"`
}

type PermitedTicket struct {
	ID        int64      `json:"id"`
	PermitID  int64      `json:"permit_id"`
	TicketID  int64      `json:"ticket_id"`
	CreatedBy string     `json:"created_by"`
	UpdatedBy string     `json:"updated_by"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type ImportRun struct {
	ID         string          `json:"id"`
	SourceName string          `json:"source_name"`
	Status     string          `json:"status"`
	Summary    json.RawMessage `json:"summary"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
