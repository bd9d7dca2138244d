package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События уведомлений, связанные со смарт-контрактами и переводами.
const (
	EventContractCreated   = "contract_created"
	EventContractConfirmed = "contract_confirmed"
	EventContractExecuted  = "contract_executed"
	EventContractCancelled = "contract_cancelled"
	EventContractExpired   = "contract_expired"
	EventTransferReceived  = "transfer_received"
	EventDepositReceived   = "deposit_received"
)

// Notification описывает событие, отправленное пользователю.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
