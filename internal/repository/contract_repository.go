package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lukamba/kitadi-backend/internal/models"
)

var (
	ErrContractNotFound = errors.New("contract not found")
	// ErrContractNotPending возвращается проигравшим гонку за исполнение:
	// контракт уже покинул статус pending.
	ErrContractNotPending = errors.New("contract is not pending")
)

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create сохраняет контракт как pending транзакцию типа smart_contract.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Transaction) error {
	query := `
		INSERT INTO transactions (type, from_user_id, to_user_id, from_wallet_id, to_wallet_id,
			amount, currency, status, description, conditions, condition_met, metadata, expires_at)
		VALUES ('smart_contract', $1, $2, $3, $4, $5, $6, 'pending', $7, $8, FALSE, $9, $10)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		contract.FromUserID, contract.ToUserID, contract.FromWalletID, contract.ToWalletID,
		contract.Amount, contract.Currency, contract.Description, contract.Conditions,
		contract.Metadata, contract.ExpiresAt,
	).Scan(&contract.ID, &contract.CreatedAt)
	if err != nil {
		return fmt.Errorf("contract repository: create %w", err)
	}

	contract.Type = models.TransactionTypeSmartContract
	contract.Status = models.TransactionStatusPending
	return nil
}

// GetByID возвращает контракт по идентификатору.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var contract models.Transaction
	err := r.db.GetContext(ctx, &contract,
		`SELECT * FROM transactions WHERE id = $1 AND type = 'smart_contract'`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by id %w", err)
	}
	return &contract, nil
}

// ListByUser возвращает контракты, где пользователь является стороной,
// вместе с общим количеством для пагинации.
func (r *ContractRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int, error) {
	var contracts []models.Transaction
	err := r.db.SelectContext(ctx, &contracts, `
		SELECT * FROM transactions
		WHERE type = 'smart_contract' AND (from_user_id = $1 OR to_user_id = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("contract repository: list %w", err)
	}

	var total int
	err = r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM transactions
		WHERE type = 'smart_contract' AND (from_user_id = $1 OR to_user_id = $1)
	`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("contract repository: count %w", err)
	}

	return contracts, total, nil
}

// Cancel переводит pending контракт в cancelled. Разрешено только
// создателю; отсутствие права и отсутствие контракта неразличимы.
// completed_at остаётся NULL: это метка исполнения, не отмены.
func (r *ContractRepository) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	var contract models.Transaction
	err := r.db.GetContext(ctx, &contract, `
		UPDATE transactions SET status = 'cancelled'
		WHERE id = $1 AND from_user_id = $2 AND type = 'smart_contract' AND status = 'pending'
		RETURNING *
	`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: cancel %w", err)
	}
	return &contract, nil
}

// Expire переводит pending контракт в expired. Применяется, когда
// time_based контракт не смог исполниться в дедлайн из-за нехватки средств.
func (r *ContractRepository) Expire(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var contract models.Transaction
	err := r.db.GetContext(ctx, &contract, `
		UPDATE transactions SET status = 'expired'
		WHERE id = $1 AND type = 'smart_contract' AND status = 'pending'
		RETURNING *
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotPending
		}
		return nil, fmt.Errorf("contract repository: expire %w", err)
	}
	return &contract, nil
}

// Execute атомарно исполняет контракт: условный переход
// pending -> completed и перемещение средств фиксируются одной
// транзакцией БД — либо сохраняется всё, либо ничего.
//
// Переход выполнен как условный UPDATE: из двух конкурирующих
// исполнителей строку получает ровно один, второй не находит pending
// строки и получает ErrContractNotPending без каких-либо мутаций.
func (r *ContractRepository) Execute(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var contract models.Transaction
	err = tx.GetContext(ctx, &contract, `
		UPDATE transactions SET status = 'completed', condition_met = TRUE, completed_at = NOW()
		WHERE id = $1 AND type = 'smart_contract' AND status = 'pending'
		RETURNING *
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotPending
		}
		return nil, fmt.Errorf("contract repository: execute transition %w", err)
	}

	if contract.FromWalletID == nil || contract.ToWalletID == nil {
		return nil, fmt.Errorf("contract repository: у контракта %s не заданы кошельки", id)
	}

	// Откат транзакции вернёт контракт в pending: completed без
	// перемещения средств наблюдать невозможно.
	if err := applyTransfer(ctx, tx, *contract.FromWalletID, *contract.ToWalletID, contract.Amount, contract.Currency); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("contract repository: execute commit %w", err)
	}
	return &contract, nil
}

// Stats агрегирует статистику контрактов пользователя.
func (r *ContractRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.ContractStats, error) {
	var stats models.ContractStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_contracts,
			COUNT(*) FILTER (WHERE status = 'pending') AS active_contracts,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed_contracts,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled_contracts,
			COALESCE(SUM(amount), 0) AS total_amount,
			COALESCE(AVG(amount), 0) AS average_amount
		FROM transactions
		WHERE type = 'smart_contract' AND (from_user_id = $1 OR to_user_id = $1)
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("contract repository: stats %w", err)
	}

	if stats.TotalContracts > 0 {
		stats.CompletionRate = float64(stats.CompletedContracts) / float64(stats.TotalContracts)
	}
	return &stats, nil
}
