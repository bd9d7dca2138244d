package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы транзакций
const (
	TransactionTypeDeposit       = "deposit"
	TransactionTypeTransfer      = "transfer"
	TransactionTypeSmartContract = "smart_contract"
)

// Статусы транзакций. Переходы однонаправленные: pending переходит
// ровно один раз в completed, cancelled или expired.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusCancelled = "cancelled"
	TransactionStatusExpired   = "expired"
)

// Transaction представляет финансовую операцию между кошельками.
// Смарт-контракт моделируется как транзакция типа smart_contract:
// средства остаются на кошельке отправителя, пока условие из поля
// conditions не будет выполнено.
type Transaction struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Type         string          `db:"type" json:"type"`
	FromUserID   *uuid.UUID      `db:"from_user_id" json:"from_user_id,omitempty"`
	ToUserID     *uuid.UUID      `db:"to_user_id" json:"to_user_id,omitempty"`
	FromWalletID *uuid.UUID      `db:"from_wallet_id" json:"from_wallet_id,omitempty"`
	ToWalletID   *uuid.UUID      `db:"to_wallet_id" json:"to_wallet_id,omitempty"`
	Amount       float64         `db:"amount" json:"amount"`
	Currency     string          `db:"currency" json:"currency"`
	Status       string          `db:"status" json:"status"`
	Description  *string         `db:"description" json:"description,omitempty"`
	Conditions   json.RawMessage `db:"conditions" json:"conditions,omitempty"`
	ConditionMet bool            `db:"condition_met" json:"condition_met"`
	Metadata     json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	ExpiresAt    *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
}

// IsPending сообщает, находится ли транзакция в ожидании.
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// ContractStats агрегирует статистику смарт-контрактов пользователя.
type ContractStats struct {
	TotalContracts     int     `db:"total_contracts" json:"total_contracts"`
	ActiveContracts    int     `db:"active_contracts" json:"active_contracts"`
	CompletedContracts int     `db:"completed_contracts" json:"completed_contracts"`
	CancelledContracts int     `db:"cancelled_contracts" json:"cancelled_contracts"`
	TotalAmount        float64 `db:"total_amount" json:"total_amount"`
	AverageAmount      float64 `db:"average_amount" json:"average_amount"`
	CompletionRate     float64 `json:"completion_rate"`
}
