package models

import (
	"time"

	"souqi/internal/domain"
)

// SubscriptionBenefits are the perks attached to an active membership.
// MarketCommissionBps overrides the category commission; 0 means the
// zero-commission perk.
type SubscriptionBenefits struct {
	MarketCommissionBps  int64 `gorm:"not null;default:0" json:"market_commission_bps"`
	JobBoosting          bool  `gorm:"not null;default:false" json:"job_boosting"`
	PremiumCourseCredits int   `gorm:"not null;default:0" json:"premium_course_credits"`
	LogisticsDiscountPct int   `gorm:"not null;default:0" json:"logistics_discount_pct"`
}

// Subscription is one optional membership per user, owned by the billing
// service and read-only everywhere else.
type Subscription struct {
	ID              uint                 `gorm:"primaryKey" json:"id"`
	UserID          uint                 `gorm:"uniqueIndex;not null" json:"user_id"`
	Status          string               `gorm:"size:10;not null;index" json:"status"`
	Tier            string               `gorm:"size:20;not null" json:"tier"`
	PriceHalalas    int64                `gorm:"not null" json:"price_halalas"`
	StartDate       time.Time            `json:"start_date"`
	NextBillingDate time.Time            `gorm:"index" json:"next_billing_date"`
	AutoRenew       bool                 `gorm:"not null;default:true" json:"auto_renew"`
	DiscountApplied bool                 `gorm:"not null;default:false" json:"discount_applied"`
	Benefits        SubscriptionBenefits `gorm:"embedded;embeddedPrefix:benefit_" json:"benefits"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// InBenefit reports whether the membership perks still apply at t. A canceled
// subscription keeps its perks until the billing date it already paid for.
func (s *Subscription) InBenefit(t time.Time) bool {
	if s.Status == domain.SubscriptionActive {
		return true
	}
	return s.Status == domain.SubscriptionCanceled && t.Before(s.NextBillingDate)
}
