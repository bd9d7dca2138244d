package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lukamba/kitadi-backend/internal/models"
)

type ConfirmationRepository struct {
	db *sqlx.DB
}

func NewConfirmationRepository(db *sqlx.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// Upsert записывает подтверждение участника. Повторный вызов того же
// пользователя обновляет существующую строку, а не создаёт дубликат:
// уникальность обеспечивается ограничением на (transaction_id, user_id).
func (r *ConfirmationRepository) Upsert(ctx context.Context, contractID, userID uuid.UUID, confirmed bool, notes *string) (*models.Confirmation, error) {
	var confirmation models.Confirmation
	query := `
		INSERT INTO confirmations (transaction_id, user_id, confirmed, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id, user_id)
		DO UPDATE SET confirmed = EXCLUDED.confirmed,
			notes = COALESCE(EXCLUDED.notes, confirmations.notes),
			updated_at = NOW()
		RETURNING *
	`
	if err := r.db.GetContext(ctx, &confirmation, query, contractID, userID, confirmed, notes); err != nil {
		return nil, fmt.Errorf("confirmation repository: upsert %w", err)
	}
	return &confirmation, nil
}

// CreatePlaceholders создаёт строки-заготовки (confirmed = FALSE) для
// известных при создании контракта подтверждающих. Повторный вызов
// существующие записи не трогает.
func (r *ConfirmationRepository) CreatePlaceholders(ctx context.Context, contractID uuid.UUID, userIDs []uuid.UUID) error {
	for _, userID := range userIDs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO confirmations (transaction_id, user_id, confirmed)
			VALUES ($1, $2, FALSE)
			ON CONFLICT (transaction_id, user_id) DO NOTHING
		`, contractID, userID)
		if err != nil {
			return fmt.Errorf("confirmation repository: create placeholder %w", err)
		}
	}
	return nil
}

// ListByContract возвращает все подтверждения контракта.
func (r *ConfirmationRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Confirmation, error) {
	var confirmations []models.Confirmation
	err := r.db.SelectContext(ctx, &confirmations,
		`SELECT * FROM confirmations WHERE transaction_id = $1 ORDER BY created_at`, contractID)
	if err != nil {
		return nil, fmt.Errorf("confirmation repository: list by contract %w", err)
	}
	return confirmations, nil
}

// ListPendingForUser возвращает ожидающие действия пользователя
// подтверждения: его неотмеченные строки по pending контрактам.
func (r *ConfirmationRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Confirmation, int, error) {
	var confirmations []models.Confirmation
	err := r.db.SelectContext(ctx, &confirmations, `
		SELECT c.* FROM confirmations c
		JOIN transactions t ON t.id = c.transaction_id
		WHERE c.user_id = $1 AND c.confirmed = FALSE AND t.status = 'pending'
		ORDER BY c.created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("confirmation repository: list pending %w", err)
	}

	var total int
	err = r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM confirmations c
		JOIN transactions t ON t.id = c.transaction_id
		WHERE c.user_id = $1 AND c.confirmed = FALSE AND t.status = 'pending'
	`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("confirmation repository: count pending %w", err)
	}

	return confirmations, total, nil
}
