package service

import (
	"errors"

	"souqi/internal/domain"
	"souqi/internal/models"
	"souqi/internal/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletFrozen      = errors.New("wallet is frozen")
)

// Movement is the outcome of one applied ledger entry.
type Movement struct {
	OwnerID    uint
	Entry      *models.LedgerEntry
	NewBalance int64
}

// Processor is the only component that moves wallet balances. Every mutation
// runs under a row lock on the wallet inside a database transaction, so two
// operations on one wallet can never interleave; operations on different
// wallets proceed in parallel.
type Processor struct {
	db      *gorm.DB
	wallets *repository.WalletRepository
	node    *snowflake.Node
}

func NewProcessor(db *gorm.DB, wallets *repository.WalletRepository, node *snowflake.Node) *Processor {
	return &Processor{db: db, wallets: wallets, node: node}
}

// NewTransactionID mints the correlation ID shared by every entry of one
// business event.
func (p *Processor) NewTransactionID() string {
	return p.node.Generate().String()
}

// Process applies exactly one ledger entry as its own transaction.
func (p *Processor) Process(ownerID uint, txType string, amount int64, description string) (*Movement, error) {
	var mv *Movement
	err := p.db.Transaction(func(tx *gorm.DB) error {
		m, err := p.Apply(tx, p.NewTransactionID(), ownerID, txType, amount, description)
		if err != nil {
			return err
		}
		mv = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// Apply moves funds inside an already-open transaction. Callers that need a
// multi-wallet business event (escrow release, renewal charge) call Apply
// several times with one transactionID inside one db.Transaction, so either
// every movement commits or none do.
func (p *Processor) Apply(tx *gorm.DB, transactionID string, ownerID uint, txType string, amount int64, description string) (*Movement, error) {
	wallets := p.wallets.WithTx(tx)

	// Credits may land on a wallet that does not exist yet (first payout).
	if _, err := wallets.GetOrCreate(ownerID); err != nil {
		return nil, err
	}
	w, err := wallets.LockByOwnerID(ownerID)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WalletActive {
		return nil, ErrWalletFrozen
	}
	if domain.EntryDirection(txType) == domain.DirectionDebit && w.BalanceHalalas < amount {
		return nil, ErrInsufficientFunds
	}

	entry := &models.LedgerEntry{
		TransactionID: transactionID,
		Type:          txType,
		AmountHalalas: amount,
		Description:   description,
	}
	if _, err := wallets.Append(w, entry); err != nil {
		if errors.Is(err, repository.ErrBalanceNegative) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	zap.L().Info("ledger entry applied",
		zap.String("transaction_id", transactionID),
		zap.Uint("owner_id", ownerID),
		zap.String("type", txType),
		zap.String("direction", entry.Direction),
		zap.Int64("amount_halalas", amount),
		zap.Int64("balance_after_halalas", entry.BalanceAfterHalalas),
	)
	return &Movement{OwnerID: ownerID, Entry: entry, NewBalance: entry.BalanceAfterHalalas}, nil
}
