package models

import (
	"time"

	"github.com/google/uuid"
)

// Confirmation фиксирует подтверждение условия контракта участником.
// На пару (transaction_id, user_id) существует не более одной записи:
// повторное подтверждение обновляет существующую строку.
type Confirmation struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TransactionID uuid.UUID `db:"transaction_id" json:"transaction_id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Confirmed     bool      `db:"confirmed" json:"confirmed"`
	Notes         *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
