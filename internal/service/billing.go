package service

import (
	"errors"
	"time"

	"souqi/config"
	"souqi/internal/domain"
	"souqi/internal/models"
	"souqi/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadySubscribed  = errors.New("subscription already active")
	ErrSubscriptionLapsed = errors.New("subscription benefit window has ended")
)

// Billing manages recurring memberships: activation, cancellation, retention
// offers, and the renewal sweep. It is the only writer of subscription rows
// and implements BenefitSource for the rest of the core.
type Billing struct {
	db        *gorm.DB
	subs      *repository.SubscriptionRepository
	processor *Processor
	cfg       config.BillingConfig
}

func NewBilling(db *gorm.DB, subs *repository.SubscriptionRepository, processor *Processor, cfg config.BillingConfig) *Billing {
	return &Billing{db: db, subs: subs, processor: processor, cfg: cfg}
}

func defaultBenefits() models.SubscriptionBenefits {
	return models.SubscriptionBenefits{
		MarketCommissionBps:  0, // zero-commission perk
		JobBoosting:          true,
		PremiumCourseCredits: 3,
		LogisticsDiscountPct: 10,
	}
}

// Subscribe charges the first month and activates the membership. The debit
// and the matching platform credit commit together with the subscription row.
func (b *Billing) Subscribe(userID uint) (*models.Subscription, error) {
	var sub *models.Subscription
	err := b.db.Transaction(func(tx *gorm.DB) error {
		subs := b.subs.WithTx(tx)
		existing, err := subs.GetByUserID(userID)
		if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
			return err
		}
		now := time.Now()
		if existing != nil && existing.InBenefit(now) {
			return ErrAlreadySubscribed
		}

		if err := b.charge(tx, userID, b.cfg.SubscriptionPriceHalalas, "membership subscription"); err != nil {
			return err
		}

		if existing == nil {
			existing = &models.Subscription{UserID: userID}
		}
		existing.Status = domain.SubscriptionActive
		existing.Tier = b.cfg.Tier
		existing.PriceHalalas = b.cfg.SubscriptionPriceHalalas
		existing.StartDate = now
		existing.NextBillingDate = now.AddDate(0, 1, 0)
		existing.AutoRenew = true
		existing.DiscountApplied = false
		existing.Benefits = defaultBenefits()

		if existing.ID == 0 {
			err = subs.Create(existing)
		} else {
			err = subs.Update(existing)
		}
		if err != nil {
			return err
		}
		sub = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("subscription activated",
		zap.Uint("user_id", userID),
		zap.Int64("price_halalas", sub.PriceHalalas),
		zap.Time("next_billing_date", sub.NextBillingDate),
	)
	return sub, nil
}

// charge debits the member and credits the platform under one transaction ID.
func (b *Billing) charge(tx *gorm.DB, userID uint, amount int64, desc string) error {
	txID := b.processor.NewTransactionID()
	if _, err := b.processor.Apply(tx, txID, userID, domain.TxTypeSubscription, amount, desc); err != nil {
		return err
	}
	_, err := b.processor.Apply(tx, txID, domain.PlatformAccountID, domain.TxTypeSubRevenue, amount, desc)
	return err
}

// Cancel stops auto-renewal immediately. Perks stay readable until the billing
// date the member already paid for (enforced by InBenefit at read time).
func (b *Billing) Cancel(userID uint) (*models.Subscription, error) {
	var sub *models.Subscription
	err := b.db.Transaction(func(tx *gorm.DB) error {
		subs := b.subs.WithTx(tx)
		s, err := subs.LockByUserID(userID)
		if err != nil {
			return err
		}
		s.AutoRenew = false
		s.Status = domain.SubscriptionCanceled
		sub = s
		return subs.Update(s)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("subscription canceled", zap.Uint("user_id", userID))
	return sub, nil
}

// ApplyRetentionOffer wins back a canceling member: re-enables auto-renew and
// halves the next cycle's price. Only valid while the benefit window is open;
// a lapsed member must re-subscribe.
func (b *Billing) ApplyRetentionOffer(userID uint) (*models.Subscription, error) {
	var sub *models.Subscription
	err := b.db.Transaction(func(tx *gorm.DB) error {
		subs := b.subs.WithTx(tx)
		s, err := subs.LockByUserID(userID)
		if err != nil {
			return err
		}
		if !s.InBenefit(time.Now()) {
			return ErrSubscriptionLapsed
		}
		s.DiscountApplied = true
		s.AutoRenew = true
		s.Status = domain.SubscriptionActive
		sub = s
		return subs.Update(s)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("retention offer applied", zap.Uint("user_id", userID))
	return sub, nil
}

// Get returns the user's subscription, if any.
func (b *Billing) Get(userID uint) (*models.Subscription, error) {
	return b.subs.GetByUserID(userID)
}

// HasAccess is the read-only feature gate used by the commission engine and
// the job/course modules.
func (b *Billing) HasAccess(userID uint, feature string) bool {
	s, err := b.subs.GetByUserID(userID)
	if err != nil {
		return false
	}
	if !s.InBenefit(time.Now()) {
		return false
	}
	switch feature {
	case domain.FeatureZeroCommission:
		return s.Benefits.MarketCommissionBps == 0
	case domain.FeatureJobBoosting:
		return s.Benefits.JobBoosting
	case domain.FeaturePremiumCourses:
		return s.Benefits.PremiumCourseCredits > 0
	case domain.FeatureLogistics:
		return s.Benefits.LogisticsDiscountPct > 0
	default:
		return false
	}
}

// BenefitsFor implements BenefitSource. Nil means no perks in force. When tx
// is an open transaction the lookup runs on it, so a caller holding the only
// database connection can still resolve benefits mid-commit.
func (b *Billing) BenefitsFor(tx *gorm.DB, userID uint, at time.Time) *models.SubscriptionBenefits {
	subs := b.subs
	if tx != nil {
		subs = b.subs.WithTx(tx)
	}
	s, err := subs.GetByUserID(userID)
	if err != nil {
		return nil
	}
	if !s.InBenefit(at) {
		return nil
	}
	benefits := s.Benefits
	return &benefits
}

// ProcessDueRenewals advances every subscription whose billing date has
// passed: auto-renew members are charged (half price once after a retention
// offer), everyone else is finalized as canceled. Returns the number of
// subscriptions processed.
func (b *Billing) ProcessDueRenewals(now time.Time) (int, error) {
	due, err := b.subs.ListDue(now, 500)
	if err != nil {
		return 0, err
	}
	renewed := 0
	for i := range due {
		if err := b.renewOne(due[i].UserID, now); err != nil {
			zap.L().Error("renewal failed",
				zap.Uint("user_id", due[i].UserID),
				zap.Error(err),
			)
			continue
		}
		renewed++
	}
	return renewed, nil
}

func (b *Billing) renewOne(userID uint, now time.Time) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		subs := b.subs.WithTx(tx)
		s, err := subs.LockByUserID(userID)
		if err != nil {
			return err
		}
		if s.NextBillingDate.After(now) {
			return nil
		}
		if !s.AutoRenew || s.Status != domain.SubscriptionActive {
			// cycle the member paid for is over; EXPIRED drops the row
			// from future sweeps
			s.Status = domain.SubscriptionExpired
			s.AutoRenew = false
			return subs.Update(s)
		}

		price := s.PriceHalalas
		if s.DiscountApplied {
			price = price * (100 - b.cfg.RetentionDiscountPct) / 100
		}
		if err := b.charge(tx, userID, price, "membership renewal"); err != nil {
			if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrWalletFrozen) {
				s.Status = domain.SubscriptionCanceled
				s.AutoRenew = false
				return subs.Update(s)
			}
			return err
		}
		s.NextBillingDate = s.NextBillingDate.AddDate(0, 1, 0)
		s.DiscountApplied = false
		return subs.Update(s)
	})
}
