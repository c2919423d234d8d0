package service

import (
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"souqi/internal/domain"
	"souqi/internal/models"
	"souqi/internal/repository"
	"souqi/internal/testutil"
)

func newTestProcessor(t *testing.T) (*Processor, *repository.WalletRepository, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t,
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.EscrowOrder{},
		&models.Subscription{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	wallets := repository.NewWalletRepository(db)
	return NewProcessor(db, wallets, node), wallets, db
}

func requireLedgerConsistent(t *testing.T, wallets *repository.WalletRepository, ownerID uint) {
	t.Helper()
	w, err := wallets.GetByOwnerID(ownerID)
	require.NoError(t, err)
	sum, err := wallets.SumEntries(w.ID)
	require.NoError(t, err)
	require.Equal(t, w.BalanceHalalas, sum, "wallet balance must equal signed ledger sum")
}

func TestProcessDepositAndWithdrawal(t *testing.T) {
	p, wallets, _ := newTestProcessor(t)

	mv, err := p.Process(10, domain.TxTypeDeposit, 50000, "top-up")
	require.NoError(t, err)
	require.Equal(t, int64(50000), mv.NewBalance)
	require.Equal(t, domain.DirectionCredit, mv.Entry.Direction)
	require.Equal(t, int64(50000), mv.Entry.BalanceAfterHalalas)

	mv, err = p.Process(10, domain.TxTypeWithdrawal, 20000, "payout")
	require.NoError(t, err)
	require.Equal(t, int64(30000), mv.NewBalance)
	require.Equal(t, domain.DirectionDebit, mv.Entry.Direction)

	requireLedgerConsistent(t, wallets, 10)
}

func TestProcessInsufficientFundsLeavesWalletUntouched(t *testing.T) {
	p, wallets, _ := newTestProcessor(t)

	_, err := p.Process(10, domain.TxTypeDeposit, 1000, "top-up")
	require.NoError(t, err)

	_, err = p.Process(10, domain.TxTypeWithdrawal, 5000, "too much")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	w, err := wallets.GetByOwnerID(10)
	require.NoError(t, err)
	require.Equal(t, int64(1000), w.BalanceHalalas)

	entries, err := wallets.Entries(w.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1, "failed debit must not write an entry")
	requireLedgerConsistent(t, wallets, 10)
}

func TestProcessFrozenWallet(t *testing.T) {
	p, wallets, _ := newTestProcessor(t)

	_, err := p.Process(10, domain.TxTypeDeposit, 1000, "top-up")
	require.NoError(t, err)
	_, err = wallets.SetStatus(10, domain.WalletFrozen)
	require.NoError(t, err)

	_, err = p.Process(10, domain.TxTypeDeposit, 1000, "top-up")
	require.ErrorIs(t, err, ErrWalletFrozen)
	_, err = p.Process(10, domain.TxTypeWithdrawal, 500, "payout")
	require.ErrorIs(t, err, ErrWalletFrozen)

	w, err := wallets.GetByOwnerID(10)
	require.NoError(t, err)
	require.Equal(t, int64(1000), w.BalanceHalalas)
}

func TestProcessRejectsUnknownType(t *testing.T) {
	p, _, _ := newTestProcessor(t)
	_, err := p.Process(10, "GIFT", 1000, "nope")
	require.ErrorIs(t, err, repository.ErrUnknownTxType)
}

func TestMultiWalletGroupRollsBackTogether(t *testing.T) {
	p, wallets, db := newTestProcessor(t)

	_, err := p.Process(10, domain.TxTypeDeposit, 5000, "top-up")
	require.NoError(t, err)

	// First movement succeeds, second fails: neither may remain.
	boom := errors.New("boom")
	err = db.Transaction(func(tx *gorm.DB) error {
		txID := p.NewTransactionID()
		if _, err := p.Apply(tx, txID, 10, domain.TxTypeWithdrawal, 3000, "half of a pair"); err != nil {
			return err
		}
		if _, err := p.Apply(tx, txID, 20, domain.TxTypeDeposit, 3000, "other half"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	w, err := wallets.GetByOwnerID(10)
	require.NoError(t, err)
	require.Equal(t, int64(5000), w.BalanceHalalas)
	requireLedgerConsistent(t, wallets, 10)
}

func TestLedgerConsistencyAfterSequence(t *testing.T) {
	p, wallets, _ := newTestProcessor(t)

	ops := []struct {
		txType string
		amount int64
	}{
		{domain.TxTypeDeposit, 10000},
		{domain.TxTypeWithdrawal, 2500},
		{domain.TxTypeDeposit, 111},
		{domain.TxTypeSubscription, 4900},
		{domain.TxTypeRefund, 300},
	}
	for _, op := range ops {
		_, err := p.Process(10, op.txType, op.amount, "seq")
		require.NoError(t, err)
	}
	requireLedgerConsistent(t, wallets, 10)

	w, err := wallets.GetByOwnerID(10)
	require.NoError(t, err)
	require.Equal(t, int64(10000-2500+111-4900+300), w.BalanceHalalas)

	// Snapshots replay the balance history newest-first.
	entries, err := wallets.Entries(w.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, w.BalanceHalalas, entries[0].BalanceAfterHalalas)
}
