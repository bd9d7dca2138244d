package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lukamba/kitadi-backend/internal/condition"
	"github.com/lukamba/kitadi-backend/internal/logger"
	"github.com/lukamba/kitadi-backend/internal/models"
	"github.com/lukamba/kitadi-backend/internal/pkg/apperror"
	"github.com/lukamba/kitadi-backend/internal/repository"
	"github.com/lukamba/kitadi-backend/internal/scheduler"
)

// ContractRepository описывает хранилище смарт-контрактов.
type ContractRepository interface {
	Create(ctx context.Context, contract *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int, error)
	Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error)
	Expire(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Execute(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.ContractStats, error)
}

// ConfirmationRepository описывает хранилище подтверждений.
type ConfirmationRepository interface {
	Upsert(ctx context.Context, contractID, userID uuid.UUID, confirmed bool, notes *string) (*models.Confirmation, error)
	CreatePlaceholders(ctx context.Context, contractID uuid.UUID, userIDs []uuid.UUID) error
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Confirmation, error)
	ListPendingForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Confirmation, int, error)
}

// ContractWalletRepository — доступ контрактного сервиса к кошелькам.
type ContractWalletRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	GetDefaultByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

// Notifier доставляет уведомления. Доставка fire-and-forget: сбой
// уведомления никогда не откатывает и не ломает операцию.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{})
}

// Scheduler планирует одноразовые отложенные задания.
type Scheduler interface {
	ScheduleOnce(ctx context.Context, name string, payload interface{}, delay time.Duration) error
}

// ContractService управляет жизненным циклом смарт-контрактов:
// создание, приём подтверждений, отмена, таймауты и атомарное
// исполнение.
type ContractService struct {
	contracts     ContractRepository
	confirmations ConfirmationRepository
	wallets       ContractWalletRepository
	notifier      Notifier
	scheduler     Scheduler
	lockTimeout   time.Duration
	currency      string
}

// NewContractService создаёт сервис смарт-контрактов. lockTimeout
// ограничивает ожидание атомарного исполнения, defaultCurrency
// подставляется в контракты без явной валюты.
func NewContractService(
	contracts ContractRepository,
	confirmations ConfirmationRepository,
	wallets ContractWalletRepository,
	notifier Notifier,
	sched Scheduler,
	lockTimeout time.Duration,
	defaultCurrency string,
) *ContractService {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	if defaultCurrency == "" {
		defaultCurrency = models.DefaultCurrency
	}
	return &ContractService{
		contracts:     contracts,
		confirmations: confirmations,
		wallets:       wallets,
		notifier:      notifier,
		scheduler:     sched,
		lockTimeout:   lockTimeout,
		currency:      defaultCurrency,
	}
}

// CreateContractInput содержит данные для создания контракта.
type CreateContractInput struct {
	FromUserID   uuid.UUID
	ToUserID     uuid.UUID
	FromWalletID *uuid.UUID // nil — кошелёк по умолчанию
	ToWalletID   *uuid.UUID
	Amount       float64
	Currency     string
	Description  *string
	Condition    *condition.Condition
	Metadata     json.RawMessage
}

// timeoutPayload — полезная нагрузка задания отложенной проверки.
type timeoutPayload struct {
	ContractID uuid.UUID `json:"contract_id"`
}

// Create валидирует условие, создаёт pending контракт, заготовки
// подтверждений и — для time_based — планирует отложенную проверку.
func (s *ContractService) Create(ctx context.Context, in CreateContractInput) (*models.Transaction, error) {
	if in.Amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if in.FromUserID == in.ToUserID {
		return nil, apperror.New(apperror.ErrCodeValidation, "контракт с самим собой не имеет смысла")
	}
	if in.Condition == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "условие контракта обязательно")
	}
	if err := in.Condition.Validate(); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное условие контракта")
	}

	currency := in.Currency
	if currency == "" {
		currency = s.currency
	}

	fromWallet, err := s.resolveWallet(ctx, in.FromWalletID, in.FromUserID)
	if err != nil {
		return nil, err
	}
	toWallet, err := s.resolveWallet(ctx, in.ToWalletID, in.ToUserID)
	if err != nil {
		return nil, err
	}
	if fromWallet.ID == toWallet.ID {
		return nil, apperror.New(apperror.ErrCodeValidation, "кошельки отправителя и получателя совпадают")
	}

	rawCondition, err := json.Marshal(in.Condition)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать условие")
	}

	contract := &models.Transaction{
		FromUserID:   &in.FromUserID,
		ToUserID:     &in.ToUserID,
		FromWalletID: &fromWallet.ID,
		ToWalletID:   &toWallet.ID,
		Amount:       in.Amount,
		Currency:     currency,
		Description:  in.Description,
		Conditions:   rawCondition,
		Metadata:     in.Metadata,
	}

	var timeout time.Duration
	if in.Condition.Type == condition.TypeTimeBased {
		timeout = in.Condition.Timeout()
		expiresAt := time.Now().Add(timeout)
		contract.ExpiresAt = &expiresAt
	}

	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать контракт")
	}

	if confirmers := in.Condition.ConfirmerIDs(); len(confirmers) > 0 {
		if err := s.confirmations.CreatePlaceholders(ctx, contract.ID, confirmers); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось подготовить подтверждения")
		}
	}

	if in.Condition.Type == condition.TypeTimeBased {
		payload := timeoutPayload{ContractID: contract.ID}
		if err := s.scheduler.ScheduleOnce(ctx, scheduler.JobContractTimeout, payload, timeout); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось запланировать таймаут контракта")
		}
	}

	s.notifyParticipants(ctx, contract, in.Condition.ConfirmerIDs(), models.EventContractCreated)

	return contract, nil
}

// Confirm записывает подтверждение участника и, если условие
// выполнено, исполняет контракт до возврата ответа.
func (s *ContractService) Confirm(ctx context.Context, contractID, userID uuid.UUID, notes *string) (*models.Transaction, error) {
	contract, cond, err := s.getPendingWithCondition(ctx, contractID)
	if err != nil {
		return nil, err
	}

	// Непричастному пользователю не раскрываем существование контракта.
	if !s.isParticipant(contract, cond, userID) {
		return nil, apperror.ErrContractNotFound
	}
	if !cond.CanConfirm(userID) {
		return nil, apperror.ErrForbidden
	}

	if _, err := s.confirmations.Upsert(ctx, contract.ID, userID, true, notes); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось записать подтверждение")
	}

	confirmations, err := s.confirmations.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось прочитать подтверждения")
	}

	result := contract
	if cond.IsSatisfied(confirmations, time.Now(), contract.ExpiresAt) {
		result, err = s.execute(ctx, contract.ID)
		if err != nil {
			return nil, err
		}
	}

	s.notifyParticipants(ctx, result, cond.ConfirmerIDs(), models.EventContractConfirmed)

	return result, nil
}

// Cancel отменяет pending контракт. Разрешено только создателю;
// чужой, отсутствующий или уже обработанный контракт неразличимы.
func (s *ContractService) Cancel(ctx context.Context, contractID, userID uuid.UUID) (*models.Transaction, error) {
	contract, err := s.contracts.Cancel(ctx, contractID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось отменить контракт")
	}

	if contract.ToUserID != nil {
		s.notifier.Notify(ctx, *contract.ToUserID, models.EventContractCancelled, contract)
	}

	return contract, nil
}

// Get возвращает контракт стороне или подтверждающему.
func (s *ContractService) Get(ctx context.Context, contractID, userID uuid.UUID) (*models.Transaction, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить контракт")
	}

	cond, err := condition.Parse(contract.Conditions)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "повреждённое условие контракта")
	}

	if !s.isParticipant(contract, cond, userID) {
		return nil, apperror.ErrContractNotFound
	}

	return contract, nil
}

// List возвращает страницу контрактов пользователя и общее количество.
func (s *ContractService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	contracts, total, err := s.contracts.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить контракты")
	}
	return contracts, total, nil
}

// PendingConfirmations возвращает подтверждения, ожидающие действия
// пользователя.
func (s *ContractService) PendingConfirmations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Confirmation, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	confirmations, total, err := s.confirmations.ListPendingForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить подтверждения")
	}
	return confirmations, total, nil
}

// Stats возвращает статистику контрактов пользователя.
func (s *ContractService) Stats(ctx context.Context, userID uuid.UUID) (*models.ContractStats, error) {
	stats, err := s.contracts.Stats(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить статистику")
	}
	return stats, nil
}

// HandleTimeout — обработчик задания отложенной проверки. Идемпотентен:
// контракт, уже покинувший pending, оставляется как есть.
func (s *ContractService) HandleTimeout(ctx context.Context, payload json.RawMessage) error {
	var job timeoutPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return err
	}

	contract, err := s.contracts.GetByID(ctx, job.ContractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil
		}
		return err
	}
	if !contract.IsPending() {
		// Контракт уже исполнен или отменён — позднее срабатывание no-op.
		return nil
	}

	cond, err := condition.Parse(contract.Conditions)
	if err != nil {
		return err
	}
	if cond.Type != condition.TypeTimeBased {
		// Не time_based контракты по таймауту не исполняются:
		// остаются pending для ручной обработки.
		return nil
	}

	_, err = s.execute(ctx, contract.ID)
	if apperror.IsInsufficientFunds(err) {
		// В дедлайн средств не оказалось: контракт истекает, средства
		// не двигаются.
		expired, expireErr := s.contracts.Expire(ctx, contract.ID)
		if expireErr != nil {
			if errors.Is(expireErr, repository.ErrContractNotPending) {
				return nil
			}
			return expireErr
		}
		s.notifyParticipants(ctx, expired, nil, models.EventContractExpired)
		return nil
	}
	return err
}

// execute атомарно исполняет контракт. Ожидание ограничено
// lockTimeout; проигравший гонку получает уже исполненный контракт
// без ошибки — ответ неотличим от ответа победителя.
func (s *ContractService) execute(ctx context.Context, contractID uuid.UUID) (*models.Transaction, error) {
	execCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	contract, err := s.contracts.Execute(execCtx, contractID)
	switch {
	case err == nil:
		s.notifyParticipants(ctx, contract, nil, models.EventContractExecuted)
		return contract, nil

	case errors.Is(err, repository.ErrContractNotPending):
		current, getErr := s.contracts.GetByID(ctx, contractID)
		if getErr != nil {
			return nil, apperror.Wrap(getErr, apperror.ErrCodeInternal, "не удалось получить контракт")
		}
		return current, nil

	case errors.Is(err, repository.ErrInsufficientFunds):
		return nil, apperror.ErrInsufficientFunds

	case errors.Is(err, context.DeadlineExceeded) || execCtx.Err() != nil:
		return nil, apperror.ErrExecutionBusy

	default:
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось исполнить контракт")
	}
}

// resolveWallet возвращает кошелёк пользователя: заданный явно (с
// проверкой владения) или кошелёк по умолчанию.
func (s *ContractService) resolveWallet(ctx context.Context, walletID *uuid.UUID, userID uuid.UUID) (*models.Wallet, error) {
	if walletID == nil {
		wallet, err := s.wallets.GetDefaultByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrWalletNotFound) {
				return nil, apperror.ErrWalletNotFound
			}
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить кошелёк")
		}
		return wallet, nil
	}

	wallet, err := s.wallets.GetByID(ctx, *walletID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, apperror.ErrWalletNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить кошелёк")
	}
	if wallet.UserID != userID {
		// Чужой кошелёк неотличим от несуществующего.
		return nil, apperror.ErrWalletNotFound
	}
	return wallet, nil
}

// isParticipant сообщает, причастен ли пользователь к контракту:
// сторона сделки либо один из подтверждающих.
func (s *ContractService) isParticipant(contract *models.Transaction, cond *condition.Condition, userID uuid.UUID) bool {
	if contract.FromUserID != nil && *contract.FromUserID == userID {
		return true
	}
	if contract.ToUserID != nil && *contract.ToUserID == userID {
		return true
	}
	for _, id := range cond.ConfirmerIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// getPendingWithCondition загружает pending контракт вместе с
// разобранным условием. Уже обработанный контракт неотличим от
// отсутствующего.
func (s *ContractService) getPendingWithCondition(ctx context.Context, contractID uuid.UUID) (*models.Transaction, *condition.Condition, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, nil, apperror.ErrContractNotFound
		}
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось получить контракт")
	}
	if !contract.IsPending() {
		return nil, nil, apperror.ErrContractNotFound
	}

	cond, err := condition.Parse(contract.Conditions)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "повреждённое условие контракта")
	}

	return contract, cond, nil
}

// notifyParticipants рассылает событие сторонам и подтверждающим.
// Сбои доставки логируются внутри Notifier и не влияют на операцию.
func (s *ContractService) notifyParticipants(ctx context.Context, contract *models.Transaction, confirmers []uuid.UUID, event string) {
	seen := make(map[uuid.UUID]struct{}, len(confirmers)+2)
	notify := func(userID uuid.UUID) {
		if _, ok := seen[userID]; ok {
			return
		}
		seen[userID] = struct{}{}
		s.notifier.Notify(ctx, userID, event, contract)
	}

	if contract.FromUserID != nil {
		notify(*contract.FromUserID)
	}
	if contract.ToUserID != nil {
		notify(*contract.ToUserID)
	}
	for _, id := range confirmers {
		notify(id)
	}

	logger.Log.WithField("contract_id", contract.ID).WithField("event", event).
		Debug("contract notification dispatched")
}
