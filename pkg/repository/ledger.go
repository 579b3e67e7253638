package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bakery/pkg/config"
	"github.com/example/bakery/pkg/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Ledger is the append-only SQL record of payment state changes.
type Ledger struct {
	db *gorm.DB
}

// OpenLedger connects to MySQL when enabled, otherwise to the local SQLite
// file, and migrates the ledger table.
func OpenLedger(cfg *config.MySQLConfig) (*Ledger, error) {
	var dialector gorm.Dialector
	if cfg.Enabled {
		dialector = mysql.Open(cfg.DSN())
	} else {
		dialector = sqlite.Open(cfg.SQLitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if cfg.Enabled {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get ledger pool: %w", err)
		}
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return NewLedger(db)
}

func NewLedger(db *gorm.DB) (*Ledger, error) {
	if err := db.AutoMigrate(&models.PaymentTransaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Append(ctx context.Context, tx *models.PaymentTransaction) error {
	if err := l.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (l *Ledger) ForOrder(ctx context.Context, orderID string) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	err := l.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return txs, nil
}

// Last returns the most recent entry for an order.
func (l *Ledger) Last(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := l.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id DESC").First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
