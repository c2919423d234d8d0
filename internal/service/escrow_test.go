package service

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"

	"souqi/config"
	"souqi/internal/domain"
	"souqi/internal/models"
	"souqi/internal/repository"
	"souqi/internal/testutil"
)

const (
	buyerID  uint = 10
	sellerID uint = 20
)

// recordingSink captures published events so tests can assert on them.
type recordingSink struct {
	orderUsers []uint
	balances   map[uint]int64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{balances: make(map[uint]int64)}
}

func (s *recordingSink) OrderEvent(userID uint, order *models.EscrowOrder) {
	s.orderUsers = append(s.orderUsers, userID)
}

func (s *recordingSink) WalletEvent(userID uint, balanceHalalas int64) {
	s.balances[userID] = balanceHalalas
}

type escrowFixture struct {
	escrow  *EscrowManager
	billing *Billing
	proc    *Processor
	wallets *repository.WalletRepository
	orders  *repository.OrderRepository
	sink    *recordingSink
}

func newEscrowFixture(t *testing.T) *escrowFixture {
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
	orders := repository.NewOrderRepository(db)
	subs := repository.NewSubscriptionRepository(db)

	proc := NewProcessor(db, wallets, node)
	commission := newTestCommissionEngine()
	billing := NewBilling(db, subs, proc, config.BillingConfig{
		SubscriptionPriceHalalas: 4900,
		RetentionDiscountPct:     50,
		Tier:                     "ELITE",
	})
	sink := newRecordingSink()
	escrow := NewEscrowManager(db, orders, proc, commission, billing, 1500, sink)
	return &escrowFixture{escrow: escrow, billing: billing, proc: proc, wallets: wallets, orders: orders, sink: sink}
}

func (f *escrowFixture) balance(t *testing.T, ownerID uint) int64 {
	t.Helper()
	w, err := f.wallets.GetOrCreate(ownerID)
	require.NoError(t, err)
	return w.BalanceHalalas
}

func (f *escrowFixture) deposit(t *testing.T, ownerID uint, amount int64) {
	t.Helper()
	_, err := f.proc.Process(ownerID, domain.TxTypeDeposit, amount, "test top-up")
	require.NoError(t, err)
}

func walletOrder(amount int64) CreateOrderInput {
	return CreateOrderInput{
		BuyerID:       buyerID,
		BuyerName:     "Abdullah",
		SellerID:      sellerID,
		SellerName:    "Noura",
		ItemTitle:     "Logo design",
		Category:      "Services",
		AmountHalalas: amount,
		PaymentMethod: domain.PaymentMethodWallet,
	}
}

// The walkthrough from the design review: buyer holds 500 SAR, buys a 300 SAR
// service, seller delivers, buyer confirms. 10% commission.
func TestWalletOrderFullLifecycle(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)
	require.Equal(t, domain.OrderInProgress, order.Status)
	require.Equal(t, int64(30000), order.TotalHalalas)
	require.Equal(t, int64(20000), f.balance(t, buyerID))
	require.Equal(t, int64(30000), f.balance(t, domain.EscrowAccountID))

	order, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderDelivered, order.Status)

	order, err = f.escrow.ConfirmReceipt(order.ID, buyerID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderCompleted, order.Status)
	require.Equal(t, int64(27000), f.balance(t, sellerID))
	require.Equal(t, int64(3000), f.balance(t, domain.PlatformAccountID))
	require.Equal(t, int64(0), f.balance(t, domain.EscrowAccountID))
	require.Equal(t, int64(20000), f.balance(t, buyerID))
}

func TestConfirmReceiptTwiceIsNoOp(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)
	_, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.NoError(t, err)
	_, err = f.escrow.ConfirmReceipt(order.ID, buyerID)
	require.NoError(t, err)

	again, err := f.escrow.ConfirmReceipt(order.ID, buyerID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderCompleted, again.Status)
	require.Equal(t, int64(27000), f.balance(t, sellerID), "no double payout")
	require.Equal(t, int64(3000), f.balance(t, domain.PlatformAccountID))
}

func TestActorAuthorization(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)

	_, err = f.escrow.MarkDelivered(order.ID, buyerID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := f.orders.GetByID(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderInProgress, got.Status, "state unchanged after forbidden transition")

	_, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.NoError(t, err)

	_, err = f.escrow.ConfirmReceipt(order.ID, sellerID)
	require.ErrorIs(t, err, ErrForbidden)
	require.Equal(t, int64(0), f.balance(t, sellerID))
}

func TestCreateOrderInsufficientFundsCreatesNothing(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 100)

	_, err := f.escrow.CreateOrder(walletOrder(30000))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	list, err := f.orders.ListByParty(buyerID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, list, "failed hold must not leave an order behind")
	require.Equal(t, int64(100), f.balance(t, buyerID))
	require.Equal(t, int64(0), f.balance(t, domain.EscrowAccountID))
}

func TestCreateOrderSelfPurchase(t *testing.T) {
	f := newEscrowFixture(t)
	in := walletOrder(1000)
	in.SellerID = in.BuyerID
	_, err := f.escrow.CreateOrder(in)
	require.ErrorIs(t, err, ErrSelfPurchase)
}

func TestInvalidTransitions(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)

	// funds already held: cancel is no longer legal
	_, err = f.escrow.Cancel(order.ID, buyerID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// cannot confirm before delivery
	_, err = f.escrow.ConfirmReceipt(order.ID, buyerID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.NoError(t, err)
	_, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderNotFound(t *testing.T) {
	f := newEscrowFixture(t)
	_, err := f.escrow.MarkDelivered(999, sellerID)
	require.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func bankOrder(amount int64) CreateOrderInput {
	in := walletOrder(amount)
	in.PaymentMethod = domain.PaymentMethodBankTransfer
	return in
}

func TestBankTransferFlow(t *testing.T) {
	f := newEscrowFixture(t)

	order, err := f.escrow.CreateOrder(bankOrder(10000))
	require.NoError(t, err)
	require.Equal(t, domain.OrderCreated, order.Status)
	require.Equal(t, int64(11500), order.TotalHalalas, "total carries the flat VAT surcharge")
	require.Equal(t, int64(0), f.balance(t, domain.EscrowAccountID), "no funds move before confirmation")

	// review cannot confirm an order with no receipt on file
	_, err = f.escrow.ConfirmBankReceipt(order.ID, 11500, "TRX-1")
	require.ErrorIs(t, err, ErrPaymentVerificationMissing)

	_, err = f.escrow.AttachReceipt(order.ID, sellerID, "https://cdn/receipt.jpg", "TRX-1")
	require.ErrorIs(t, err, ErrForbidden)

	order, err = f.escrow.AttachReceipt(order.ID, buyerID, "https://cdn/receipt.jpg", "TRX-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderPendingVerification, order.Status)

	_, err = f.escrow.ConfirmBankReceipt(order.ID, 9000, "TRX-1")
	require.ErrorIs(t, err, ErrReceiptAmountMismatch)

	order, err = f.escrow.ConfirmBankReceipt(order.ID, 11500, "TRX-1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderInProgress, order.Status)
	require.Equal(t, int64(10000), f.balance(t, domain.EscrowAccountID))
	require.Equal(t, int64(1500), f.balance(t, domain.PlatformAccountID), "VAT surcharge goes to the platform")
}

func TestBankOrderCancelBeforeFunding(t *testing.T) {
	f := newEscrowFixture(t)

	order, err := f.escrow.CreateOrder(bankOrder(10000))
	require.NoError(t, err)

	order, err = f.escrow.Cancel(order.ID, buyerID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderCanceled, order.Status)
	require.Equal(t, int64(0), f.balance(t, domain.EscrowAccountID))

	// terminal: nothing can move it again
	_, err = f.escrow.AttachReceipt(order.ID, buyerID, "https://cdn/receipt.jpg", "TRX-1")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDisputeAndRefund(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)

	order, err = f.escrow.Dispute(order.ID, sellerID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderDisputed, order.Status)

	order, err = f.escrow.Resolve(order.ID, domain.ResolveRefund)
	require.NoError(t, err)
	require.Equal(t, domain.OrderRefunded, order.Status)
	require.Equal(t, int64(50000), f.balance(t, buyerID))
	require.Equal(t, int64(0), f.balance(t, domain.EscrowAccountID))
	require.Equal(t, int64(0), f.balance(t, sellerID))
}

func TestDisputeResolvedAsRelease(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)
	_, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.NoError(t, err)
	order, err = f.escrow.Dispute(order.ID, buyerID)
	require.NoError(t, err)

	order, err = f.escrow.Resolve(order.ID, domain.ResolveRelease)
	require.NoError(t, err)
	require.Equal(t, domain.OrderCompleted, order.Status)
	require.Equal(t, int64(27000), f.balance(t, sellerID))
	require.Equal(t, int64(3000), f.balance(t, domain.PlatformAccountID))
}

func TestFundMovementsPublishWalletEvents(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)
	require.Equal(t, int64(20000), f.sink.balances[buyerID], "hold pushes the buyer's new balance")
	require.Equal(t, int64(30000), f.sink.balances[domain.EscrowAccountID])

	_, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.NoError(t, err)
	_, err = f.escrow.ConfirmReceipt(order.ID, buyerID)
	require.NoError(t, err)

	require.Equal(t, int64(27000), f.sink.balances[sellerID], "payout pushes the seller's new balance")
	require.Equal(t, int64(3000), f.sink.balances[domain.PlatformAccountID])
	require.Equal(t, int64(0), f.sink.balances[domain.EscrowAccountID])
	require.Contains(t, f.sink.orderUsers, buyerID)
	require.Contains(t, f.sink.orderUsers, sellerID)
}

func TestRefundPublishesBuyerWalletEvent(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)
	_, err = f.escrow.Dispute(order.ID, buyerID)
	require.NoError(t, err)
	_, err = f.escrow.Resolve(order.ID, domain.ResolveRefund)
	require.NoError(t, err)

	require.Equal(t, int64(50000), f.sink.balances[buyerID])
	require.Equal(t, int64(0), f.sink.balances[domain.EscrowAccountID])
}

func TestZeroCommissionSellerKeepsFullAmount(t *testing.T) {
	f := newEscrowFixture(t)
	f.deposit(t, buyerID, 50000)
	f.deposit(t, sellerID, 4900)

	_, err := f.billing.Subscribe(sellerID)
	require.NoError(t, err)
	platformAfterSub := f.balance(t, domain.PlatformAccountID)

	order, err := f.escrow.CreateOrder(walletOrder(30000))
	require.NoError(t, err)
	_, err = f.escrow.MarkDelivered(order.ID, sellerID)
	require.NoError(t, err)
	_, err = f.escrow.ConfirmReceipt(order.ID, buyerID)
	require.NoError(t, err)

	require.Equal(t, int64(30000), f.balance(t, sellerID), "member pays no commission")
	require.Equal(t, platformAfterSub, f.balance(t, domain.PlatformAccountID))
	require.Equal(t, int64(0), f.balance(t, domain.EscrowAccountID))
}
