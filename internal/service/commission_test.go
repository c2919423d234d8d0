package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"souqi/config"
	"souqi/internal/models"
)

func newTestCommissionEngine() *CommissionEngine {
	return NewCommissionEngine(&config.CommissionConfig{
		Rules: map[string]config.CommissionRule{
			"Cars":     {RateBps: 100, CapHalalas: 500000},
			"Services": {RateBps: 1000},
		},
		DefaultRule: config.CommissionRule{RateBps: 100},
		VATRateBps:  1500,
	})
}

func TestCommissionByCategory(t *testing.T) {
	engine := newTestCommissionEngine()
	zeroCommission := &models.SubscriptionBenefits{MarketCommissionBps: 0}

	tests := []struct {
		name     string
		amount   int64
		category string
		benefits *models.SubscriptionBenefits
		want     int64
	}{
		{"cars one percent", 100000, "Cars", nil, 1000},           // 1000 SAR -> 10.00
		{"cars cap applied", 60000000, "Cars", nil, 500000},       // 600k SAR -> capped at 5000.00
		{"cars at cap boundary", 50000000, "Cars", nil, 500000},   // exactly the cap
		{"services ten percent", 20000, "Services", nil, 2000},    // 200 SAR -> 20.00
		{"zero commission membership", 20000, "Services", zeroCommission, 0},
		{"unknown category falls back", 10000, "Electronics", nil, 100},
		{"rounds half away from zero", 125, "Services", nil, 13}, // 12.5 halalas -> 13
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, engine.Calculate(tt.amount, tt.category, tt.benefits))
		})
	}
}

func TestCommissionIsDeterministic(t *testing.T) {
	engine := newTestCommissionEngine()
	first := engine.Calculate(123457, "Cars", nil)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, engine.Calculate(123457, "Cars", nil))
	}
}

func TestVATOn(t *testing.T) {
	require.Equal(t, int64(1500), VATOn(10000, 1500))
	require.Equal(t, int64(0), VATOn(0, 1500))
	require.Equal(t, int64(15), VATOn(100, 1500))
}
