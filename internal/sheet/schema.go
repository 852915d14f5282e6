package sheet

type Kind string

const (
	KindTicket    Kind = "ticket"
	KindFinancial Kind = "financial"
	KindUnknown   Kind = "unknown"
)

type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type Schema struct {
	Kind      Kind    `json:"kind"`
	Fields    []Field `json:"fields"`
	Threshold int     `json:"threshold"`
}

// Logical field names of the ticket extract.
const (
	FieldWorkOrder      = "work_order"
	FieldTicketCode     = "ticket_code"
	FieldAddress        = "address"
	FieldLocation       = "location"
	FieldFromStreet     = "from_street"
	FieldToStreet       = "to_street"
	FieldDimensions     = "dimensions"
	FieldQuadrant       = "quadrant"
	FieldItemCode       = "item_code"
	FieldQuantity       = "quantity"
	FieldPermitNumber   = "permit_number"
	FieldPermitStart    = "permit_start"
	FieldPermitExpire   = "permit_expire"
	FieldReportedDate   = "reported_date"
	FieldPartnerComment = "partner_comment"
)

func TicketSchema(threshold int) Schema {
	return Schema{
		Kind:      KindTicket,
		Threshold: threshold,
		Fields: []Field{
			{FieldWorkOrder, "WORK ORDER"},
			{FieldTicketCode, "TICKET CODE"},
			{FieldAddress, "ADDRESS"},
			{FieldLocation, "LOCATION"},
			{FieldFromStreet, "FROM STREET"},
			{FieldToStreet, "TO STREET"},
			{FieldDimensions, "DIMENSIONS"},
			{FieldQuadrant, "QUADRANT"},
			{FieldItemCode, "CONTRACT ITEM"},
			{FieldQuantity, "QUANTITY"},
			{FieldPermitNumber, "PERMIT NUMBER"},
			{FieldPermitStart, "PERMIT START DATE"},
			{FieldPermitExpire, "PERMIT EXPIRATION DATE"},
			{FieldReportedDate, "REPORTED DATE"},
			{FieldPartnerComment, "COMMENTS"},
		},
	}
}

func FinancialSchema(threshold int) Schema {
	return Schema{
		Kind:      KindFinancial,
		Threshold: threshold,
		Fields: []Field{
			{"invoice_number", "INVOICE NUMBER"},
			{FieldWorkOrder, "WORK ORDER"},
			{FieldItemCode, "CONTRACT ITEM"},
			{FieldQuantity, "QUANTITY"},
			{"unit_price", "UNIT PRICE"},
			{"amount", "AMOUNT"},
			{"invoice_date", "INVOICE DATE"},
		},
	}
}

// CustomSchema builds an ad-hoc schema whose labels are the field names.
func CustomSchema(names []string, threshold int) Schema {
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, Field{Name: n, Label: n})
	}
	return Schema{Kind: KindUnknown, Fields: fields, Threshold: threshold}
}
