package repository

import (
	"errors"
	"time"

	"souqi/internal/domain"
	"souqi/internal/models"

	"gorm.io/gorm"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) GetByUserID(userID uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) LockByUserID(userID uint) (*models.Subscription, error) {
	var s models.Subscription
	err := lockForUpdate(r.db).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) Create(s *models.Subscription) error {
	return r.db.Create(s).Error
}

func (r *SubscriptionRepository) Update(s *models.Subscription) error {
	return r.db.Save(s).Error
}

// ListDue returns subscriptions whose billing date has passed and that still
// need a sweep decision: active ones to charge, canceled ones to finalize.
// Expired rows never match again.
func (r *SubscriptionRepository) ListDue(now time.Time, limit int) ([]models.Subscription, error) {
	var list []models.Subscription
	statuses := []string{domain.SubscriptionActive, domain.SubscriptionCanceled}
	err := r.db.Where("next_billing_date <= ? AND status IN ?", now, statuses).
		Order("next_billing_date ASC").Limit(limit).Find(&list).Error
	return list, err
}
