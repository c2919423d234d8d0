package repository

import (
	"errors"

	"souqi/internal/models"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(o *models.EscrowOrder) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByID(id uint) (*models.EscrowOrder, error) {
	var o models.EscrowOrder
	err := r.db.First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// LockByID loads the order row under SELECT ... FOR UPDATE so a state
// transition cannot race another transition of the same order.
func (r *OrderRepository) LockByID(id uint) (*models.EscrowOrder, error) {
	var o models.EscrowOrder
	err := lockForUpdate(r.db).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) Update(o *models.EscrowOrder) error {
	return r.db.Save(o).Error
}

// ListByParty returns orders where the user is buyer or seller, newest first.
func (r *OrderRepository) ListByParty(userID uint, limit, offset int) ([]models.EscrowOrder, error) {
	var list []models.EscrowOrder
	err := r.db.Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *OrderRepository) ListByStatus(status string, limit int) ([]models.EscrowOrder, error) {
	var list []models.EscrowOrder
	err := r.db.Where("status = ?", status).Order("created_at ASC").Limit(limit).Find(&list).Error
	return list, err
}
