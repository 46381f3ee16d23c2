package postgres

import "time"

// WalletRecord is a custodial wallet pair owned by one messaging-platform user.
type WalletRecord struct {
	ID uint `gorm:"primaryKey"`

	TelegramUserID string `gorm:"column:telegram_user_id;type:text;not null;uniqueIndex:idx_wallet_telegram_user"`

	EVMAddress    string `gorm:"column:evm_address;type:text;not null"`
	EVMPrivateKey string `gorm:"column:evm_private_key;type:text;not null"`
	SolAddress    string `gorm:"column:sol_address;type:text;not null"`
	SolPrivateKey string `gorm:"column:sol_private_key;type:text;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (WalletRecord) TableName() string {
	return "user_wallets"
}
