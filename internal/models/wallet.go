package models

import (
	"time"
)

// Wallet is the materialized balance view over the ledger. BalanceHalalas must
// always equal the signed sum of the wallet's ledger entries; only the
// transaction processor writes it.
type Wallet struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	OwnerID        uint      `gorm:"uniqueIndex;not null" json:"owner_id"`
	BalanceHalalas int64     `gorm:"not null;default:0" json:"balance_halalas"`
	Currency       string    `gorm:"size:3;default:'SAR'" json:"currency"`
	Status         string    `gorm:"size:10;not null;default:'ACTIVE';index" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"last_updated"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// LedgerEntry is immutable once written. Corrections are new offsetting
// entries; there is no update or delete path. No soft-delete column on
// purpose - financial rows are never hidden.
type LedgerEntry struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	TransactionID       string    `gorm:"size:32;not null;index" json:"transaction_id"`
	WalletID            uint      `gorm:"not null;index" json:"wallet_id"`
	Direction           string    `gorm:"size:6;not null" json:"direction"`
	Type                string    `gorm:"size:20;not null;index" json:"type"`
	AmountHalalas       int64     `gorm:"not null" json:"amount_halalas"`
	BalanceAfterHalalas int64     `gorm:"not null" json:"balance_after_halalas"`
	Description         string    `gorm:"size:255" json:"description"`
	CreatedAt           time.Time `json:"timestamp"`

	Wallet Wallet `gorm:"foreignKey:WalletID" json:"-"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Signed returns the entry amount with its direction applied.
func (e *LedgerEntry) Signed() int64 {
	if e.Direction == "DEBIT" {
		return -e.AmountHalalas
	}
	return e.AmountHalalas
}
