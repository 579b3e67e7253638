package models

import (
	"time"
)

// Ledger events.
const (
	LedgerCreated  = "created"
	LedgerVerified = "verified"
	LedgerCaptured = "captured"
	LedgerFailed   = "failed"
	LedgerCOD      = "cod_collected"
)

// PaymentTransaction is one append-only row in the SQL payments ledger.
type PaymentTransaction struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          string    `gorm:"type:varchar(24);not null;index" json:"order_id"`
	OrderNumber      string    `gorm:"type:varchar(32);index" json:"order_number"`
	GatewayOrderID   string    `gorm:"type:varchar(64);index" json:"gateway_order_id"`
	GatewayPaymentID string    `gorm:"type:varchar(64)" json:"gateway_payment_id"`
	Event            string    `gorm:"type:varchar(20);not null" json:"event"`
	Source           string    `gorm:"type:varchar(20)" json:"source"`
	Status           string    `gorm:"type:varchar(20)" json:"status"`
	Amount           float64   `gorm:"type:decimal(10,2)" json:"amount"`
	Currency         string    `gorm:"type:varchar(3)" json:"currency"`
	Payload          string    `gorm:"type:text" json:"payload,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
