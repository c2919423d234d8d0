package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Reserved wallet owners. Seeded at startup; regular users get IDs above these.
const (
	PlatformAccountID uint = 1
	EscrowAccountID   uint = 2
)

const Currency = "SAR"

const (
	WalletActive = "ACTIVE"
	WalletFrozen = "FROZEN"
)

const (
	DirectionCredit = "CREDIT"
	DirectionDebit  = "DEBIT"
)

// Ledger entry types. Direction is fixed per type (see EntryDirection).
const (
	TxTypeDeposit       = "DEPOSIT"
	TxTypeWithdrawal    = "WITHDRAWAL"
	TxTypePurchase      = "PURCHASE"
	TxTypeCommission    = "COMMISSION"
	TxTypeRefund        = "REFUND"
	TxTypeSubscription  = "SUBSCRIPTION"
	TxTypeSalePayout    = "SALE_PAYOUT"
	TxTypeSubRevenue    = "SUBSCRIPTION_REVENUE"
	TxTypeVAT           = "VAT"
	TxTypeEscrowHold    = "ESCROW_HOLD"
	TxTypeEscrowRelease = "ESCROW_RELEASE"
)

var entryDirections = map[string]string{
	TxTypeDeposit:       DirectionCredit,
	TxTypeRefund:        DirectionCredit,
	TxTypeSalePayout:    DirectionCredit,
	TxTypeCommission:    DirectionCredit,
	TxTypeVAT:           DirectionCredit,
	TxTypeEscrowHold:    DirectionCredit,
	TxTypeSubRevenue:    DirectionCredit,
	TxTypeWithdrawal:    DirectionDebit,
	TxTypePurchase:      DirectionDebit,
	TxTypeSubscription:  DirectionDebit,
	TxTypeEscrowRelease: DirectionDebit,
}

// EntryDirection maps an entry type to CREDIT/DEBIT. Unknown types return "".
func EntryDirection(txType string) string {
	return entryDirections[txType]
}

const (
	OrderCreated             = "CREATED"
	OrderPendingVerification = "PENDING_VERIFICATION"
	OrderInProgress          = "IN_PROGRESS"
	OrderDelivered           = "DELIVERED"
	OrderCompleted           = "COMPLETED"
	OrderDisputed            = "DISPUTED"
	OrderCanceled            = "CANCELED"
	OrderRefunded            = "REFUNDED"
)

const (
	PaymentMethodWallet       = "WALLET"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
)

const (
	ResolveRelease = "RELEASE"
	ResolveRefund  = "REFUND"
)

const (
	SubscriptionActive   = "ACTIVE"
	SubscriptionCanceled = "CANCELED"
	SubscriptionExpired  = "EXPIRED"
)

// Subscription feature flags used by HasAccess.
const (
	FeatureZeroCommission = "ZERO_COMMISSION"
	FeatureJobBoosting    = "JOB_BOOSTING"
	FeaturePremiumCourses = "PREMIUM_COURSES"
	FeatureLogistics      = "LOGISTICS_DISCOUNT"
)
