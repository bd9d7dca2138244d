package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lukamba/kitadi-backend/internal/models"
	"github.com/lukamba/kitadi-backend/internal/pkg/apperror"
	"github.com/lukamba/kitadi-backend/internal/repository"
	"github.com/lukamba/kitadi-backend/internal/validation"
)

// WalletServiceRepository описывает зависимости WalletService от слоя
// хранилища.
type WalletServiceRepository interface {
	Create(ctx context.Context, userID uuid.UUID, isDefault bool) (*models.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetDefaultByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	GetBalances(ctx context.Context, walletID uuid.UUID) (map[string]float64, error)
	Deposit(ctx context.Context, walletID, userID uuid.UUID, amount float64, currency, description string) (*models.Transaction, error)
	Transfer(ctx context.Context, fromWalletID, toWalletID, fromUserID, toUserID uuid.UUID, amount float64, currency, description string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
}

// WalletService управляет кошельками, пополнениями и мгновенными
// переводами.
type WalletService struct {
	repo            WalletServiceRepository
	notifier        Notifier
	defaultCurrency string
}

// NewWalletService создаёт сервис кошельков. defaultCurrency
// подставляется в операции, не указавшие валюту явно.
func NewWalletService(repo WalletServiceRepository, notifier Notifier, defaultCurrency string) *WalletService {
	if defaultCurrency == "" {
		defaultCurrency = models.DefaultCurrency
	}
	return &WalletService{repo: repo, notifier: notifier, defaultCurrency: defaultCurrency}
}

// TransferInput содержит данные мгновенного перевода.
type TransferInput struct {
	FromUserID   uuid.UUID
	ToUserID     uuid.UUID
	FromWalletID *uuid.UUID // nil — кошелёк по умолчанию
	ToWalletID   *uuid.UUID
	Amount       float64
	Currency     string
	Description  string
}

// CreateWallet заводит дополнительный кошелёк пользователя.
func (s *WalletService) CreateWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.Create(ctx, userID, false)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать кошелёк")
	}
	return wallet, nil
}

// GetWallet возвращает кошелёк пользователя вместе с балансами по
// валютам. Чужой кошелёк неотличим от несуществующего.
func (s *WalletService) GetWallet(ctx context.Context, walletID, userID uuid.UUID) (*models.WalletView, error) {
	wallet, err := s.repo.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, apperror.ErrWalletNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить кошелёк")
	}
	if wallet.UserID != userID {
		return nil, apperror.ErrWalletNotFound
	}

	balances, err := s.repo.GetBalances(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить балансы")
	}

	return &models.WalletView{Wallet: *wallet, Balances: balances}, nil
}

// GetDefaultWallet возвращает кошелёк пользователя по умолчанию с
// балансами.
func (s *WalletService) GetDefaultWallet(ctx context.Context, userID uuid.UUID) (*models.WalletView, error) {
	wallet, err := s.repo.GetDefaultByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, apperror.ErrWalletNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить кошелёк")
	}

	balances, err := s.repo.GetBalances(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить балансы")
	}

	return &models.WalletView{Wallet: *wallet, Balances: balances}, nil
}

// Deposit пополняет кошелёк пользователя.
func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, walletID *uuid.UUID, amount float64, currency, description string) (*models.Transaction, error) {
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if currency == "" {
		currency = s.defaultCurrency
	}

	wallet, err := s.ownedWallet(ctx, walletID, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.Deposit(ctx, wallet.ID, userID, amount, currency, description)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось пополнить кошелёк")
	}

	s.notifier.Notify(ctx, userID, models.EventDepositReceived, tx)

	return tx, nil
}

// Transfer мгновенно переводит средства между кошельками двух
// пользователей.
func (s *WalletService) Transfer(ctx context.Context, in TransferInput) (*models.Transaction, error) {
	if err := validation.ValidateAmount(in.Amount); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.FromUserID == in.ToUserID {
		return nil, apperror.New(apperror.ErrCodeValidation, "перевод самому себе не имеет смысла")
	}

	currency := in.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	fromWallet, err := s.ownedWallet(ctx, in.FromWalletID, in.FromUserID)
	if err != nil {
		return nil, err
	}

	var toWallet *models.Wallet
	if in.ToWalletID != nil {
		toWallet, err = s.repo.GetByID(ctx, *in.ToWalletID)
		if err == nil && toWallet.UserID != in.ToUserID {
			err = repository.ErrWalletNotFound
		}
	} else {
		toWallet, err = s.repo.GetDefaultByUserID(ctx, in.ToUserID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, apperror.ErrWalletNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить кошелёк получателя")
	}

	tx, err := s.repo.Transfer(ctx, fromWallet.ID, toWallet.ID, in.FromUserID, in.ToUserID, in.Amount, currency, in.Description)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, apperror.ErrInsufficientFunds
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выполнить перевод")
	}

	s.notifier.Notify(ctx, in.ToUserID, models.EventTransferReceived, tx)

	return tx, nil
}

// ListTransactions возвращает историю операций пользователя.
func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	transactions, err := s.repo.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить историю операций")
	}
	return transactions, nil
}

// ownedWallet возвращает кошелёк пользователя: явный с проверкой
// владения либо кошелёк по умолчанию.
func (s *WalletService) ownedWallet(ctx context.Context, walletID *uuid.UUID, userID uuid.UUID) (*models.Wallet, error) {
	var (
		wallet *models.Wallet
		err    error
	)
	if walletID != nil {
		wallet, err = s.repo.GetByID(ctx, *walletID)
		if err == nil && wallet.UserID != userID {
			err = repository.ErrWalletNotFound
		}
	} else {
		wallet, err = s.repo.GetDefaultByUserID(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, apperror.ErrWalletNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить кошелёк")
	}
	return wallet, nil
}
