package codes

import "time"

// Code is one sellable redemption unit. Lifecycle is derived from the two
// nullable columns: available (both null) -> reserved (ReservedAt set) ->
// sold (OrderID set). A sold code never becomes available again.
type Code struct {
	ID           int64
	ProductID    string
	Period       int
	SerialNumber string
	Price        int64
	ReservedAt   *time.Time
	OrderID      *string
}

func (c Code) Available() bool { return c.OrderID == nil && c.ReservedAt == nil }
func (c Code) Reserved() bool  { return c.OrderID == nil && c.ReservedAt != nil }
func (c Code) Sold() bool      { return c.OrderID != nil }

// NewCode is the seller-side input for seeding inventory.
type NewCode struct {
	Period       int    `json:"period"`
	SerialNumber string `json:"serial_number"`
	Price        int64  `json:"price"`
}

// CodeGroup keeps the codes that satisfy one cart line together, so an
// order can report which codes answered which {period, quantity} request.
type CodeGroup struct {
	Period int
	Codes  []Code
}

// Order is the durable record of a completed sale. Immutable once written.
type Order struct {
	ID                 string
	ConfirmationNumber string
	Email              string
	Amount             int64
	CodeQuantity       int
	CreatedAt          time.Time
}
