package repository

import (
	"errors"

	"souqi/internal/domain"
	"souqi/internal/models"

	"gorm.io/gorm"
)

var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrInvalidAmount   = errors.New("entry amount must be positive")
	ErrUnknownTxType   = errors.New("unknown transaction type")
	ErrBalanceNegative = errors.New("entry would drive balance negative")
)

// WalletRepository is the ledger store plus its materialized balance. Entries
// are append-only; the wallet row is only ever written through Append, inside
// the caller's transaction.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByOwnerID(ownerID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.Where("owner_id = ?", ownerID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetOrCreate returns the owner's wallet, creating an empty active one on
// first use. Idempotent per owner (the owner_id unique index backstops races).
func (r *WalletRepository) GetOrCreate(ownerID uint) (*models.Wallet, error) {
	w, err := r.GetByOwnerID(ownerID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}
	w = &models.Wallet{OwnerID: ownerID, Currency: domain.Currency, Status: domain.WalletActive}
	if err := r.db.Create(w).Error; err != nil {
		// lost a create race; the row exists now
		if existing, gerr := r.GetByOwnerID(ownerID); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	return w, nil
}

// LockByOwnerID loads the wallet row under SELECT ... FOR UPDATE. Must be
// called inside a transaction; serializes all mutations of one wallet.
func (r *WalletRepository) LockByOwnerID(ownerID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := lockForUpdate(r.db).Where("owner_id = ?", ownerID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Append writes one ledger entry and moves the wallet balance with it. The
// wallet must already be locked by the caller. BalanceAfter is computed here
// so the stored snapshot can never disagree with the balance it was written
// with.
func (r *WalletRepository) Append(w *models.Wallet, entry *models.LedgerEntry) (*models.LedgerEntry, error) {
	if entry.AmountHalalas <= 0 {
		return nil, ErrInvalidAmount
	}
	direction := domain.EntryDirection(entry.Type)
	if direction == "" {
		return nil, ErrUnknownTxType
	}
	entry.Direction = direction
	entry.WalletID = w.ID

	newBalance := w.BalanceHalalas + entry.Signed()
	if newBalance < 0 {
		return nil, ErrBalanceNegative
	}
	entry.BalanceAfterHalalas = newBalance

	if err := r.db.Create(entry).Error; err != nil {
		return nil, err
	}
	w.BalanceHalalas = newBalance
	if err := r.db.Model(&models.Wallet{}).Where("id = ?", w.ID).
		Update("balance_halalas", newBalance).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// Entries returns the wallet's ledger newest-first.
func (r *WalletRepository) Entries(walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var list []models.LedgerEntry
	err := r.db.Where("wallet_id = ?", walletID).
		Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// SumEntries recomputes the balance from the ledger. Audit/consistency checks
// only; the live balance is maintained by Append.
func (r *WalletRepository) SumEntries(walletID uint) (int64, error) {
	var sum *int64
	err := r.db.Model(&models.LedgerEntry{}).
		Select("SUM(CASE WHEN direction = 'DEBIT' THEN -amount_halalas ELSE amount_halalas END)").
		Where("wallet_id = ?", walletID).Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// SetStatus freezes or unfreezes a wallet.
func (r *WalletRepository) SetStatus(ownerID uint, status string) (*models.Wallet, error) {
	w, err := r.GetByOwnerID(ownerID)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(w).Update("status", status).Error; err != nil {
		return nil, err
	}
	w.Status = status
	return w, nil
}
