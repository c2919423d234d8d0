package service

import (
	"errors"
	"fmt"
	"time"

	"souqi/internal/domain"
	"souqi/internal/models"
	"souqi/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrForbidden                  = errors.New("actor not allowed for this transition")
	ErrInvalidTransition          = errors.New("transition not legal from current state")
	ErrSelfPurchase               = errors.New("buyer and seller must differ")
	ErrPaymentVerificationMissing = errors.New("order has no payment receipt on file")
	ErrReceiptAmountMismatch      = errors.New("receipt amount does not cover order total")
)

// BenefitSource reports the membership perks in force for a user, if any.
// Implemented by the billing service; consulted at fund-release time only.
// The lookup runs on the caller's open transaction (nil means the root
// connection) so a release reads on the same connection it commits on.
type BenefitSource interface {
	BenefitsFor(tx *gorm.DB, userID uint, at time.Time) *models.SubscriptionBenefits
}

// EventSink receives wallet/order notifications after a commit. Implemented
// by the websocket hub; may be nil.
type EventSink interface {
	OrderEvent(userID uint, order *models.EscrowOrder)
	WalletEvent(userID uint, balanceHalalas int64)
}

// EscrowManager owns the marketplace order state machine. Fund movements go
// through the processor inside the same database transaction that records the
// state change, so an order can never claim funds the ledger does not hold.
type EscrowManager struct {
	db         *gorm.DB
	orders     *repository.OrderRepository
	processor  *Processor
	commission *CommissionEngine
	benefits   BenefitSource
	vatRateBps int64
	events     EventSink
}

func NewEscrowManager(db *gorm.DB, orders *repository.OrderRepository, processor *Processor,
	commission *CommissionEngine, benefits BenefitSource, vatRateBps int64, events EventSink) *EscrowManager {
	return &EscrowManager{
		db:         db,
		orders:     orders,
		processor:  processor,
		commission: commission,
		benefits:   benefits,
		vatRateBps: vatRateBps,
		events:     events,
	}
}

type CreateOrderInput struct {
	BuyerID       uint
	BuyerName     string
	SellerID      uint
	SellerName    string
	ItemTitle     string
	Category      string
	AmountHalalas int64
	PaymentMethod string
}

// CreateOrder opens an order. Wallet payment debits the buyer and credits the
// escrow wallet in the same transaction that creates the order row; if the
// hold fails nothing is created. Bank-transfer orders start unfunded and wait
// for a receipt.
func (m *EscrowManager) CreateOrder(in CreateOrderInput) (*models.EscrowOrder, error) {
	if in.BuyerID == in.SellerID {
		return nil, ErrSelfPurchase
	}

	order := &models.EscrowOrder{
		BuyerID:       in.BuyerID,
		BuyerName:     in.BuyerName,
		SellerID:      in.SellerID,
		SellerName:    in.SellerName,
		ItemTitle:     in.ItemTitle,
		Category:      in.Category,
		AmountHalalas: in.AmountHalalas,
		PaymentMethod: in.PaymentMethod,
	}

	switch in.PaymentMethod {
	case domain.PaymentMethodWallet:
		order.TotalHalalas = in.AmountHalalas
		order.Status = domain.OrderInProgress
	case domain.PaymentMethodBankTransfer:
		// buyer wires total including the flat VAT surcharge
		order.TotalHalalas = in.AmountHalalas + VATOn(in.AmountHalalas, m.vatRateBps)
		order.Status = domain.OrderCreated
	default:
		return nil, fmt.Errorf("unknown payment method %q", in.PaymentMethod)
	}

	var movements []*Movement
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := m.orders.WithTx(tx).Create(order); err != nil {
			return err
		}
		if in.PaymentMethod != domain.PaymentMethodWallet {
			return nil
		}
		txID := m.processor.NewTransactionID()
		hold := fmt.Sprintf("escrow hold for order #%d", order.ID)
		debit, err := m.processor.Apply(tx, txID, in.BuyerID, domain.TxTypePurchase, order.TotalHalalas, hold)
		if err != nil {
			return err
		}
		credit, err := m.processor.Apply(tx, txID, domain.EscrowAccountID, domain.TxTypeEscrowHold, order.TotalHalalas, hold)
		if err != nil {
			return err
		}
		movements = []*Movement{debit, credit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("status", order.Status),
		zap.String("payment_method", order.PaymentMethod),
		zap.Int64("amount_halalas", order.AmountHalalas),
	)
	m.notify(order)
	m.notifyWallets(movements)
	return order, nil
}

// AttachReceipt records the buyer's bank-transfer receipt and moves the order
// to PendingVerification. Re-uploads are allowed until the review confirms.
func (m *EscrowManager) AttachReceipt(orderID, actorID uint, url, ref string) (*models.EscrowOrder, error) {
	var order *models.EscrowOrder
	err := m.db.Transaction(func(tx *gorm.DB) error {
		o, err := m.orders.WithTx(tx).LockByID(orderID)
		if err != nil {
			return err
		}
		if o.BuyerID != actorID {
			return ErrForbidden
		}
		if o.PaymentMethod != domain.PaymentMethodBankTransfer ||
			(o.Status != domain.OrderCreated && o.Status != domain.OrderPendingVerification) {
			return ErrInvalidTransition
		}
		o.ReceiptURL = url
		o.ReceiptRef = ref
		o.Status = domain.OrderPendingVerification
		order = o
		return m.orders.WithTx(tx).Update(o)
	})
	if err != nil {
		return nil, err
	}
	m.notify(order)
	return order, nil
}

// ConfirmBankReceipt is driven by the external receipt-review collaborator.
// The confirmed amount funds the escrow wallet; the VAT surcharge goes to the
// platform wallet. PendingVerification -> InProgress.
func (m *EscrowManager) ConfirmBankReceipt(orderID uint, amountHalalas int64, reference string) (*models.EscrowOrder, error) {
	var order *models.EscrowOrder
	var movements []*Movement
	err := m.db.Transaction(func(tx *gorm.DB) error {
		o, err := m.orders.WithTx(tx).LockByID(orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderCreated {
			return ErrPaymentVerificationMissing
		}
		if o.Status != domain.OrderPendingVerification {
			return ErrInvalidTransition
		}
		if amountHalalas < o.TotalHalalas {
			return ErrReceiptAmountMismatch
		}

		txID := m.processor.NewTransactionID()
		desc := fmt.Sprintf("bank receipt %s for order #%d", reference, o.ID)
		hold, err := m.processor.Apply(tx, txID, domain.EscrowAccountID, domain.TxTypeEscrowHold, o.AmountHalalas, desc)
		if err != nil {
			return err
		}
		movements = append(movements, hold)
		if vat := o.TotalHalalas - o.AmountHalalas; vat > 0 {
			mv, err := m.processor.Apply(tx, txID, domain.PlatformAccountID, domain.TxTypeVAT, vat, desc)
			if err != nil {
				return err
			}
			movements = append(movements, mv)
		}

		o.Status = domain.OrderInProgress
		if reference != "" {
			o.ReceiptRef = reference
		}
		order = o
		return m.orders.WithTx(tx).Update(o)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("bank receipt confirmed",
		zap.Uint("order_id", order.ID),
		zap.Int64("amount_halalas", amountHalalas),
		zap.String("reference", reference),
	)
	m.notify(order)
	m.notifyWallets(movements)
	return order, nil
}

// MarkDelivered is seller-only: InProgress -> Delivered. No fund movement.
func (m *EscrowManager) MarkDelivered(orderID, actorID uint) (*models.EscrowOrder, error) {
	var order *models.EscrowOrder
	err := m.db.Transaction(func(tx *gorm.DB) error {
		o, err := m.orders.WithTx(tx).LockByID(orderID)
		if err != nil {
			return err
		}
		if o.SellerID != actorID {
			return ErrForbidden
		}
		if o.Status != domain.OrderInProgress {
			return ErrInvalidTransition
		}
		o.Status = domain.OrderDelivered
		order = o
		return m.orders.WithTx(tx).Update(o)
	})
	if err != nil {
		return nil, err
	}
	m.notify(order)
	return order, nil
}

// ConfirmReceipt is buyer-only: Delivered -> Completed, releasing the held
// funds. Confirming an already-completed order is a no-op so buyer retries
// can never double-pay the seller.
func (m *EscrowManager) ConfirmReceipt(orderID, actorID uint) (*models.EscrowOrder, error) {
	var order *models.EscrowOrder
	var movements []*Movement
	err := m.db.Transaction(func(tx *gorm.DB) error {
		o, err := m.orders.WithTx(tx).LockByID(orderID)
		if err != nil {
			return err
		}
		if o.BuyerID != actorID {
			return ErrForbidden
		}
		if o.Status == domain.OrderCompleted {
			order = o
			return nil
		}
		if o.Status != domain.OrderDelivered {
			return ErrInvalidTransition
		}
		movements, err = m.release(tx, o)
		if err != nil {
			return err
		}
		o.Status = domain.OrderCompleted
		order = o
		return m.orders.WithTx(tx).Update(o)
	})
	if err != nil {
		return nil, err
	}
	if len(movements) > 0 {
		m.notify(order)
		m.notifyWallets(movements)
	}
	return order, nil
}

// release pays the seller net of commission and credits the platform fee, all
// against the escrow wallet and under one transaction ID. The commission is
// computed now, from the seller's current membership, not at order creation.
// The benefit read goes through tx so the whole release uses one connection.
func (m *EscrowManager) release(tx *gorm.DB, o *models.EscrowOrder) ([]*Movement, error) {
	var benefits *models.SubscriptionBenefits
	if m.benefits != nil {
		benefits = m.benefits.BenefitsFor(tx, o.SellerID, time.Now())
	}
	fee := m.commission.Calculate(o.AmountHalalas, o.Category, benefits)

	txID := m.processor.NewTransactionID()
	desc := fmt.Sprintf("release for order #%d", o.ID)
	movements := make([]*Movement, 0, 3)
	mv, err := m.processor.Apply(tx, txID, domain.EscrowAccountID, domain.TxTypeEscrowRelease, o.AmountHalalas, desc)
	if err != nil {
		return nil, err
	}
	movements = append(movements, mv)
	mv, err = m.processor.Apply(tx, txID, o.SellerID, domain.TxTypeSalePayout, o.AmountHalalas-fee, "sale payout")
	if err != nil {
		return nil, err
	}
	movements = append(movements, mv)
	if fee > 0 {
		mv, err = m.processor.Apply(tx, txID, domain.PlatformAccountID, domain.TxTypeCommission, fee, "platform fee")
		if err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}

	zap.L().Info("escrow released",
		zap.Uint("order_id", o.ID),
		zap.String("transaction_id", txID),
		zap.Int64("amount_halalas", o.AmountHalalas),
		zap.Int64("fee_halalas", fee),
	)
	return movements, nil
}

// Cancel is buyer-only and legal only before funds move:
// Created|PendingVerification -> Canceled.
func (m *EscrowManager) Cancel(orderID, actorID uint) (*models.EscrowOrder, error) {
	var order *models.EscrowOrder
	err := m.db.Transaction(func(tx *gorm.DB) error {
		o, err := m.orders.WithTx(tx).LockByID(orderID)
		if err != nil {
			return err
		}
		if o.BuyerID != actorID {
			return ErrForbidden
		}
		if o.Status != domain.OrderCreated && o.Status != domain.OrderPendingVerification {
			return ErrInvalidTransition
		}
		o.Status = domain.OrderCanceled
		order = o
		return m.orders.WithTx(tx).Update(o)
	})
	if err != nil {
		return nil, err
	}
	m.notify(order)
	return order, nil
}

// Dispute can be raised by either party while funds are held:
// InProgress|Delivered -> Disputed. Funds stay in escrow for resolution.
func (m *EscrowManager) Dispute(orderID, actorID uint) (*models.EscrowOrder, error) {
	var order *models.EscrowOrder
	err := m.db.Transaction(func(tx *gorm.DB) error {
		o, err := m.orders.WithTx(tx).LockByID(orderID)
		if err != nil {
			return err
		}
		if o.BuyerID != actorID && o.SellerID != actorID {
			return ErrForbidden
		}
		if o.Status != domain.OrderInProgress && o.Status != domain.OrderDelivered {
			return ErrInvalidTransition
		}
		o.Status = domain.OrderDisputed
		order = o
		return m.orders.WithTx(tx).Update(o)
	})
	if err != nil {
		return nil, err
	}
	m.notify(order)
	return order, nil
}

// Resolve settles a disputed order. RELEASE pays the seller as a normal
// completion; REFUND returns the held amount to the buyer. Admin-only, gated
// at the route.
func (m *EscrowManager) Resolve(orderID uint, outcome string) (*models.EscrowOrder, error) {
	var order *models.EscrowOrder
	var movements []*Movement
	err := m.db.Transaction(func(tx *gorm.DB) error {
		o, err := m.orders.WithTx(tx).LockByID(orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderDisputed {
			return ErrInvalidTransition
		}
		switch outcome {
		case domain.ResolveRelease:
			movements, err = m.release(tx, o)
			if err != nil {
				return err
			}
			o.Status = domain.OrderCompleted
		case domain.ResolveRefund:
			txID := m.processor.NewTransactionID()
			desc := fmt.Sprintf("refund for order #%d", o.ID)
			out, err := m.processor.Apply(tx, txID, domain.EscrowAccountID, domain.TxTypeEscrowRelease, o.AmountHalalas, desc)
			if err != nil {
				return err
			}
			back, err := m.processor.Apply(tx, txID, o.BuyerID, domain.TxTypeRefund, o.AmountHalalas, desc)
			if err != nil {
				return err
			}
			movements = []*Movement{out, back}
			o.Status = domain.OrderRefunded
		default:
			return fmt.Errorf("unknown resolution outcome %q", outcome)
		}
		order = o
		return m.orders.WithTx(tx).Update(o)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("dispute resolved",
		zap.Uint("order_id", order.ID),
		zap.String("outcome", outcome),
	)
	m.notify(order)
	m.notifyWallets(movements)
	return order, nil
}

func (m *EscrowManager) notify(o *models.EscrowOrder) {
	if m.events == nil || o == nil {
		return
	}
	m.events.OrderEvent(o.BuyerID, o)
	m.events.OrderEvent(o.SellerID, o)
}

// notifyWallets pushes the post-commit balance of every wallet a business
// event touched.
func (m *EscrowManager) notifyWallets(movements []*Movement) {
	if m.events == nil {
		return
	}
	for _, mv := range movements {
		m.events.WalletEvent(mv.OwnerID, mv.NewBalance)
	}
}
