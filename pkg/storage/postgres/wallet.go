package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

var ErrWalletNotFound = errors.New("wallet not found")

// FindWallet looks the user up by telegram user id, then by numeric row id.
func (p *PostgresClient) FindWallet(ctx context.Context, userID string) (*WalletRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrWalletNotFound
	}

	var wallet WalletRecord
	err := p.DB.WithContext(ctx).
		Where("telegram_user_id = ?", userID).
		Limit(1).
		Take(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find wallet by telegram id: %w", err)
	}

	id, ok := numericID(userID)
	if !ok {
		return nil, ErrWalletNotFound
	}

	err = p.DB.WithContext(ctx).
		Where("id = ?", id).
		Take(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find wallet by id: %w", err)
	}
	return &wallet, nil
}

// InsertWallet stores a wallet pair. Used by migrations and tests; wallet
// generation lives outside this service.
func (p *PostgresClient) InsertWallet(ctx context.Context, record *WalletRecord) error {
	if err := p.DB.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// numericID reads userID as a row id. Any finite integral number is accepted,
// so "12", "12.0" and "1.2e1" all name row 12.
func numericID(userID string) (uint64, bool) {
	f, err := strconv.ParseFloat(userID, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 1 || f != math.Trunc(f) || f > 1<<53 {
		return 0, false
	}
	return uint64(f), true
}
