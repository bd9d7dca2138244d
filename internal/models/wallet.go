package models

import (
	"time"

	"github.com/google/uuid"
)

// Валюта по умолчанию для новых кошельков.
const DefaultCurrency = "AOA"

// Wallet описывает кошелёк пользователя. Остатки хранятся отдельно,
// по одной строке на валюту (см. WalletBalance).
type Wallet struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	IsRetired bool      `db:"is_retired" json:"is_retired"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WalletBalance хранит остаток кошелька в одной валюте.
// Инвариант: balance >= 0, изменяется только внутри транзакции
// с блокировкой строки (см. wallet_repository).
type WalletBalance struct {
	WalletID  uuid.UUID `db:"wallet_id" json:"wallet_id"`
	Currency  string    `db:"currency" json:"currency"`
	Balance   float64   `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WalletView отдаёт кошелёк вместе с картой остатков по валютам.
type WalletView struct {
	Wallet
	Balances map[string]float64 `json:"balances"`
}
