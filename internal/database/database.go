package database

import (
	"errors"

	"souqi/config"
	"souqi/internal/domain"
	"souqi/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.EscrowOrder{},
		&models.Subscription{},
	)
}

// SeedSystemWallets creates the platform and escrow wallets if missing.
// User wallets are created lazily on first use; these two must exist before
// any order or subscription money can move.
func SeedSystemWallets(db *gorm.DB) error {
	for _, owner := range []uint{domain.PlatformAccountID, domain.EscrowAccountID} {
		var w models.Wallet
		err := db.Where("owner_id = ?", owner).First(&w).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		w = models.Wallet{OwnerID: owner, Currency: domain.Currency, Status: domain.WalletActive}
		if err := db.Create(&w).Error; err != nil {
			return err
		}
	}
	return nil
}
