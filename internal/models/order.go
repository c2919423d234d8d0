package models

import (
	"time"

	"souqi/internal/domain"
)

// EscrowOrder is one buyer-seller exchange. Rows are never deleted; terminal
// orders stay as the audit trail.
type EscrowOrder struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BuyerID       uint      `gorm:"not null;index" json:"buyer_id"`
	BuyerName     string    `gorm:"size:120" json:"buyer_name"`
	SellerID      uint      `gorm:"not null;index" json:"seller_id"`
	SellerName    string    `gorm:"size:120" json:"seller_name"`
	ItemTitle     string    `gorm:"size:255;not null" json:"service_title"`
	Category      string    `gorm:"size:50;not null" json:"category"`
	AmountHalalas int64     `gorm:"not null" json:"amount_halalas"`
	TotalHalalas  int64     `gorm:"not null" json:"total_halalas"`
	PaymentMethod string    `gorm:"size:20;not null" json:"payment_method"`
	Status        string    `gorm:"size:25;not null;index" json:"status"`
	ReceiptURL    string    `gorm:"size:512" json:"receipt_url,omitempty"`
	ReceiptRef    string    `gorm:"size:128" json:"receipt_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (EscrowOrder) TableName() string {
	return "escrow_orders"
}

func (o *EscrowOrder) IsTerminal() bool {
	return o.Status == domain.OrderCompleted || o.Status == domain.OrderCanceled || o.Status == domain.OrderRefunded
}
