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
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type WalletRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create создаёт кошелёк пользователя.
func (r *WalletRepository) Create(ctx context.Context, userID uuid.UUID, isDefault bool) (*models.Wallet, error) {
	var wallet models.Wallet
	query := `
		INSERT INTO wallets (user_id, is_default)
		VALUES ($1, $2)
		RETURNING id, user_id, is_default, is_retired, created_at, updated_at
	`
	if err := r.db.GetContext(ctx, &wallet, query, userID, isDefault); err != nil {
		return nil, fmt.Errorf("wallet repository: create %w", err)
	}
	return &wallet, nil
}

// GetByID возвращает кошелёк по идентификатору.
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.GetContext(ctx, &wallet, `SELECT * FROM wallets WHERE id = $1 AND is_retired = FALSE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet repository: get by id %w", err)
	}
	return &wallet, nil
}

// GetDefaultByUserID возвращает кошелёк пользователя по умолчанию.
func (r *WalletRepository) GetDefaultByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.GetContext(ctx, &wallet,
		`SELECT * FROM wallets WHERE user_id = $1 AND is_default = TRUE AND is_retired = FALSE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet repository: get default %w", err)
	}
	return &wallet, nil
}

// GetBalances возвращает карту остатков кошелька по валютам.
func (r *WalletRepository) GetBalances(ctx context.Context, walletID uuid.UUID) (map[string]float64, error) {
	var rows []models.WalletBalance
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM wallet_balances WHERE wallet_id = $1 ORDER BY currency`, walletID)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: get balances %w", err)
	}

	balances := make(map[string]float64, len(rows))
	for _, row := range rows {
		balances[row.Currency] = row.Balance
	}
	return balances, nil
}

// Deposit пополняет кошелёк извне и записывает завершённую транзакцию.
func (r *WalletRepository) Deposit(ctx context.Context, walletID, userID uuid.UUID, amount float64, currency, description string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_balances (wallet_id, currency, balance)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_id, currency)
		DO UPDATE SET balance = wallet_balances.balance + $3, updated_at = NOW()
	`, walletID, currency, amount)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit update balance %w", err)
	}

	var transaction models.Transaction
	err = tx.GetContext(ctx, &transaction, `
		INSERT INTO transactions (type, to_user_id, to_wallet_id, amount, currency, status, description, completed_at)
		VALUES ('deposit', $1, $2, $3, $4, 'completed', $5, NOW())
		RETURNING *
	`, userID, walletID, amount, currency, description)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: deposit create transaction %w", err)
	}

	return &transaction, tx.Commit()
}

// Transfer выполняет прямой перевод между кошельками и записывает
// завершённую транзакцию. Перемещение средств и запись — одна
// транзакция БД.
func (r *WalletRepository) Transfer(ctx context.Context, fromWalletID, toWalletID uuid.UUID, fromUserID, toUserID uuid.UUID, amount float64, currency, description string) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := applyTransfer(ctx, tx, fromWalletID, toWalletID, amount, currency); err != nil {
		return nil, err
	}

	var transaction models.Transaction
	err = tx.GetContext(ctx, &transaction, `
		INSERT INTO transactions (type, from_user_id, to_user_id, from_wallet_id, to_wallet_id, amount, currency, status, description, completed_at)
		VALUES ('transfer', $1, $2, $3, $4, $5, $6, 'completed', $7, NOW())
		RETURNING *
	`, fromUserID, toUserID, fromWalletID, toWalletID, amount, currency, description)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: transfer create transaction %w", err)
	}

	return &transaction, tx.Commit()
}

// lockOrder возвращает пару кошельков в фиксированном порядке
// (лексикографически по id). И speculative insert нулевых строк, и
// FOR UPDATE блокировки берутся в этом порядке независимо от
// направления перевода.
func lockOrder(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

// applyTransfer перемещает amount currency между кошельками внутри
// уже открытой транзакции. Строки остатков блокируются FOR UPDATE в
// фиксированном порядке (лексикографически по id кошелька), чтобы два
// встречных перевода не взаимоблокировались. Дебет, уводящий остаток
// в минус, отклоняется с ErrInsufficientFunds.
func applyTransfer(ctx context.Context, tx *sqlx.Tx, fromWalletID, toWalletID uuid.UUID, amount float64, currency string) error {
	if fromWalletID == toWalletID {
		return fmt.Errorf("wallet repository: перевод самому себе запрещён")
	}

	first, second := lockOrder(fromWalletID, toWalletID)

	// Строка получателя могла ещё не существовать в этой валюте —
	// создаём нулевые строки заранее. Вставка идёт в том же порядке,
	// что и блокировки ниже: встречные первые переводы по одной паре
	// (кошелёк, валюта) иначе могут взаимоблокироваться уже на
	// speculative insert блокировках.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_balances (wallet_id, currency, balance)
		VALUES ($1, $3, 0), ($2, $3, 0)
		ON CONFLICT (wallet_id, currency) DO NOTHING
	`, first, second, currency)
	if err != nil {
		return fmt.Errorf("wallet repository: ensure balance rows %w", err)
	}

	balances := make(map[uuid.UUID]float64, 2)
	for _, walletID := range []uuid.UUID{first, second} {
		var balance float64
		err := tx.GetContext(ctx, &balance,
			`SELECT balance FROM wallet_balances WHERE wallet_id = $1 AND currency = $2 FOR UPDATE`,
			walletID, currency)
		if err != nil {
			return fmt.Errorf("wallet repository: lock balance %w", err)
		}
		balances[walletID] = balance
	}

	if balances[fromWalletID] < amount {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallet_balances SET balance = balance - $3, updated_at = NOW()
		WHERE wallet_id = $1 AND currency = $2
	`, fromWalletID, currency, amount)
	if err != nil {
		return fmt.Errorf("wallet repository: debit %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallet_balances SET balance = balance + $3, updated_at = NOW()
		WHERE wallet_id = $1 AND currency = $2
	`, toWalletID, currency, amount)
	if err != nil {
		return fmt.Errorf("wallet repository: credit %w", err)
	}

	return nil
}

// ListTransactions возвращает историю операций по кошелькам пользователя.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet repository: list transactions %w", err)
	}
	return transactions, nil
}
