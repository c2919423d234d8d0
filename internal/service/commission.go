package service

import (
	"github.com/shopspring/decimal"

	"souqi/config"
	"souqi/internal/models"
)

// CommissionEngine computes the platform fee for a completed sale. Pure and
// stateless; the rule table comes from configuration.
type CommissionEngine struct {
	rules       map[string]config.CommissionRule
	defaultRule config.CommissionRule
}

func NewCommissionEngine(cfg *config.CommissionConfig) *CommissionEngine {
	return &CommissionEngine{rules: cfg.Rules, defaultRule: cfg.DefaultRule}
}

// Calculate returns the fee in halalas for a sale of amount in the given
// category. A seller whose membership carries the zero-commission perk pays
// nothing. Unknown categories fall back to the default rule rather than fail.
// Rounding (half away from zero) happens here, before any ledger entry exists.
func (e *CommissionEngine) Calculate(amount int64, category string, benefits *models.SubscriptionBenefits) int64 {
	if benefits != nil && benefits.MarketCommissionBps == 0 {
		return 0
	}

	rule, ok := e.rules[category]
	if !ok {
		rule = e.defaultRule
	}
	rateBps := rule.RateBps
	if benefits != nil && benefits.MarketCommissionBps > 0 {
		rateBps = benefits.MarketCommissionBps
	}

	fee := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(rateBps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).IntPart()
	if rule.CapHalalas > 0 && fee > rule.CapHalalas {
		fee = rule.CapHalalas
	}
	if fee < 0 {
		fee = 0
	}
	return fee
}

// VATOn returns the flat-VAT surcharge on amount.
func VATOn(amount, rateBps int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(rateBps)).
		Div(decimal.NewFromInt(10000)).
		Round(0).IntPart()
}
