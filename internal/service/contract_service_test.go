package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lukamba/kitadi-backend/internal/condition"
	"github.com/lukamba/kitadi-backend/internal/models"
	"github.com/lukamba/kitadi-backend/internal/pkg/apperror"
	"github.com/lukamba/kitadi-backend/internal/repository"
)

type mockContractRepo struct {
	mock.Mock
}

func (m *mockContractRepo) Create(ctx context.Context, contract *models.Transaction) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *mockContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockContractRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Transaction), args.Int(1), args.Error(2)
}

func (m *mockContractRepo) Cancel(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockContractRepo) Expire(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockContractRepo) Execute(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockContractRepo) Stats(ctx context.Context, userID uuid.UUID) (*models.ContractStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContractStats), args.Error(1)
}

type mockConfirmationRepo struct {
	mock.Mock
}

func (m *mockConfirmationRepo) Upsert(ctx context.Context, contractID, userID uuid.UUID, confirmed bool, notes *string) (*models.Confirmation, error) {
	args := m.Called(ctx, contractID, userID, confirmed, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Confirmation), args.Error(1)
}

func (m *mockConfirmationRepo) CreatePlaceholders(ctx context.Context, contractID uuid.UUID, userIDs []uuid.UUID) error {
	args := m.Called(ctx, contractID, userIDs)
	return args.Error(0)
}

func (m *mockConfirmationRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Confirmation, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.Confirmation), args.Error(1)
}

func (m *mockConfirmationRepo) ListPendingForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Confirmation, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Confirmation), args.Int(1), args.Error(2)
}

type mockWalletLookup struct {
	mock.Mock
}

func (m *mockWalletLookup) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletLookup) GetDefaultByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

// fakeNotifier записывает доставленные события.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ uuid.UUID, event string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, e := range n.events {
		if e == event {
			total++
		}
	}
	return total
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) ScheduleOnce(ctx context.Context, name string, payload interface{}, delay time.Duration) error {
	args := m.Called(ctx, name, payload, delay)
	return args.Error(0)
}

func manualCondition(userID uuid.UUID) *condition.Condition {
	return &condition.Condition{
		Type:   condition.TypeManual,
		Manual: &condition.Manual{ConfirmUserID: userID},
	}
}

func multiPartyCondition(confirmers []uuid.UUID, required int) *condition.Condition {
	return &condition.Condition{
		Type: condition.TypeMultiParty,
		MultiParty: &condition.MultiParty{
			Confirmers:            confirmers,
			RequiredConfirmations: required,
		},
	}
}

func timeBasedCondition(timeout string) *condition.Condition {
	return &condition.Condition{
		Type:      condition.TypeTimeBased,
		TimeBased: &condition.TimeBased{Timeout: timeout},
	}
}

func mustMarshal(t *testing.T, cond *condition.Condition) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(cond)
	require.NoError(t, err)
	return raw
}

type contractFixture struct {
	contracts     *mockContractRepo
	confirmations *mockConfirmationRepo
	wallets       *mockWalletLookup
	notifier      *fakeNotifier
	scheduler     *mockScheduler
	svc           *ContractService
}

func newContractFixture() *contractFixture {
	f := &contractFixture{
		contracts:     new(mockContractRepo),
		confirmations: new(mockConfirmationRepo),
		wallets:       new(mockWalletLookup),
		notifier:      &fakeNotifier{},
		scheduler:     new(mockScheduler),
	}
	f.svc = NewContractService(f.contracts, f.confirmations, f.wallets, f.notifier, f.scheduler, time.Second, models.DefaultCurrency)
	return f
}

func pendingContract(from, to uuid.UUID, cond *condition.Condition, raw json.RawMessage) *models.Transaction {
	fromWallet := uuid.New()
	toWallet := uuid.New()
	return &models.Transaction{
		ID:           uuid.New(),
		Type:         models.TransactionTypeSmartContract,
		FromUserID:   &from,
		ToUserID:     &to,
		FromWalletID: &fromWallet,
		ToWalletID:   &toWallet,
		Amount:       500,
		Currency:     models.DefaultCurrency,
		Status:       models.TransactionStatusPending,
		Conditions:   raw,
		CreatedAt:    time.Now(),
	}
}

func TestContractService_Create_ManualConfirmation(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()

	fromUser := uuid.New()
	toUser := uuid.New()
	fromWallet := &models.Wallet{ID: uuid.New(), UserID: fromUser}
	toWallet := &models.Wallet{ID: uuid.New(), UserID: toUser}

	f.wallets.On("GetDefaultByUserID", ctx, fromUser).Return(fromWallet, nil)
	f.wallets.On("GetDefaultByUserID", ctx, toUser).Return(toWallet, nil)
	f.contracts.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).Return(nil)
	f.confirmations.On("CreatePlaceholders", ctx, mock.Anything, []uuid.UUID{toUser}).Return(nil)

	contract, err := f.svc.Create(ctx, CreateContractInput{
		FromUserID: fromUser,
		ToUserID:   toUser,
		Amount:     1000,
		Condition:  manualCondition(toUser),
	})

	require.NoError(t, err)
	assert.Equal(t, fromWallet.ID, *contract.FromWalletID)
	assert.Equal(t, toWallet.ID, *contract.ToWalletID)
	assert.Equal(t, models.DefaultCurrency, contract.Currency)
	assert.Nil(t, contract.ExpiresAt)
	f.scheduler.AssertNotCalled(t, "ScheduleOnce", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 2, f.notifier.count(models.EventContractCreated))
}

func TestContractService_Create_InvalidAmount(t *testing.T) {
	f := newContractFixture()

	_, err := f.svc.Create(context.Background(), CreateContractInput{
		FromUserID: uuid.New(),
		ToUserID:   uuid.New(),
		Amount:     0,
		Condition:  manualCondition(uuid.New()),
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestContractService_Create_InvalidCondition(t *testing.T) {
	f := newContractFixture()

	_, err := f.svc.Create(context.Background(), CreateContractInput{
		FromUserID: uuid.New(),
		ToUserID:   uuid.New(),
		Amount:     100,
		Condition:  multiPartyCondition([]uuid.UUID{uuid.New()}, 2),
	})

	assert.True(t, apperror.IsValidation(err))
}

func TestContractService_Create_ForeignWallet(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()

	fromUser := uuid.New()
	walletID := uuid.New()
	foreign := &models.Wallet{ID: walletID, UserID: uuid.New()}
	f.wallets.On("GetByID", ctx, walletID).Return(foreign, nil)

	_, err := f.svc.Create(ctx, CreateContractInput{
		FromUserID:   fromUser,
		ToUserID:     uuid.New(),
		FromWalletID: &walletID,
		Amount:       100,
		Condition:    manualCondition(uuid.New()),
	})

	// Чужой кошелёк неотличим от несуществующего.
	assert.True(t, apperror.IsNotFound(err))
}

func TestContractService_Create_TimeBased(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()

	fromUser := uuid.New()
	toUser := uuid.New()
	f.wallets.On("GetDefaultByUserID", ctx, fromUser).Return(&models.Wallet{ID: uuid.New(), UserID: fromUser}, nil)
	f.wallets.On("GetDefaultByUserID", ctx, toUser).Return(&models.Wallet{ID: uuid.New(), UserID: toUser}, nil)
	f.contracts.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).Return(nil)
	f.scheduler.On("ScheduleOnce", ctx, "contract_timeout", mock.Anything, 48*time.Hour).Return(nil)

	contract, err := f.svc.Create(ctx, CreateContractInput{
		FromUserID: fromUser,
		ToUserID:   toUser,
		Amount:     250,
		Condition:  timeBasedCondition("2d"),
	})

	require.NoError(t, err)
	require.NotNil(t, contract.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), *contract.ExpiresAt, time.Minute)
	f.scheduler.AssertExpectations(t)
	// Подтверждающих нет — заготовки не создаются.
	f.confirmations.AssertNotCalled(t, "CreatePlaceholders", mock.Anything, mock.Anything, mock.Anything)
}

func TestContractService_Confirm_ExecutesWhenSatisfied(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()

	fromUser := uuid.New()
	toUser := uuid.New()
	cond := manualCondition(toUser)
	contract := pendingContract(fromUser, toUser, cond, mustMarshal(t, cond))

	completed := *contract
	completed.Status = models.TransactionStatusCompleted
	completed.ConditionMet = true

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
	f.confirmations.On("Upsert", mock.Anything, contract.ID, toUser, true, (*string)(nil)).
		Return(&models.Confirmation{TransactionID: contract.ID, UserID: toUser, Confirmed: true}, nil)
	f.confirmations.On("ListByContract", mock.Anything, contract.ID).
		Return([]models.Confirmation{{TransactionID: contract.ID, UserID: toUser, Confirmed: true}}, nil)
	f.contracts.On("Execute", mock.Anything, contract.ID).Return(&completed, nil)

	result, err := f.svc.Confirm(ctx, contract.ID, toUser, nil)

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, result.Status)
	assert.True(t, result.ConditionMet)
	// Обе стороны уведомлены об исполнении.
	assert.Equal(t, 2, f.notifier.count(models.EventContractExecuted))
}

func TestContractService_Confirm_NotYetSatisfied(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()

	fromUser := uuid.New()
	toUser := uuid.New()
	confirmers := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	cond := multiPartyCondition(confirmers, 2)
	contract := pendingContract(fromUser, toUser, cond, mustMarshal(t, cond))

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
	f.confirmations.On("Upsert", mock.Anything, contract.ID, confirmers[0], true, (*string)(nil)).
		Return(&models.Confirmation{TransactionID: contract.ID, UserID: confirmers[0], Confirmed: true}, nil)
	f.confirmations.On("ListByContract", mock.Anything, contract.ID).
		Return([]models.Confirmation{{TransactionID: contract.ID, UserID: confirmers[0], Confirmed: true}}, nil)

	result, err := f.svc.Confirm(ctx, contract.ID, confirmers[0], nil)

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, result.Status)
	f.contracts.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestContractService_Confirm_PartyWithoutRight(t *testing.T) {
	f := newContractFixture()

	fromUser := uuid.New()
	toUser := uuid.New()
	cond := manualCondition(toUser)
	contract := pendingContract(fromUser, toUser, cond, mustMarshal(t, cond))

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

	// Отправитель — сторона контракта, но подтверждать вправе только
	// назначенный пользователь.
	_, err := f.svc.Confirm(context.Background(), contract.ID, fromUser, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_Confirm_UnrelatedUser(t *testing.T) {
	f := newContractFixture()

	cond := manualCondition(uuid.New())
	contract := pendingContract(uuid.New(), uuid.New(), cond, mustMarshal(t, cond))

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

	_, err := f.svc.Confirm(context.Background(), contract.ID, uuid.New(), nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestContractService_Confirm_AlreadySettled(t *testing.T) {
	f := newContractFixture()

	toUser := uuid.New()
	cond := manualCondition(toUser)
	contract := pendingContract(uuid.New(), toUser, cond, mustMarshal(t, cond))
	contract.Status = models.TransactionStatusCompleted

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

	_, err := f.svc.Confirm(context.Background(), contract.ID, toUser, nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestContractService_Confirm_TimeBasedForbidden(t *testing.T) {
	f := newContractFixture()

	fromUser := uuid.New()
	toUser := uuid.New()
	cond := timeBasedCondition("1d")
	contract := pendingContract(fromUser, toUser, cond, mustMarshal(t, cond))
	expiresAt := time.Now().Add(24 * time.Hour)
	contract.ExpiresAt = &expiresAt

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

	// time_based исполняется только по таймеру, людям подтверждать нечего.
	_, err := f.svc.Confirm(context.Background(), contract.ID, toUser, nil)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_Cancel_ByCreator(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()

	fromUser := uuid.New()
	toUser := uuid.New()
	cond := manualCondition(toUser)
	contract := pendingContract(fromUser, toUser, cond, mustMarshal(t, cond))
	cancelled := *contract
	cancelled.Status = models.TransactionStatusCancelled

	f.contracts.On("Cancel", ctx, contract.ID, fromUser).Return(&cancelled, nil)

	result, err := f.svc.Cancel(ctx, contract.ID, fromUser)

	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCancelled, result.Status)
	assert.Equal(t, 1, f.notifier.count(models.EventContractCancelled))
}

func TestContractService_Cancel_NotFound(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()
	contractID := uuid.New()
	userID := uuid.New()

	f.contracts.On("Cancel", ctx, contractID, userID).Return(nil, repository.ErrContractNotFound)

	_, err := f.svc.Cancel(ctx, contractID, userID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestContractService_HandleTimeout_Executes(t *testing.T) {
	f := newContractFixture()

	cond := timeBasedCondition("1h")
	contract := pendingContract(uuid.New(), uuid.New(), cond, mustMarshal(t, cond))
	expiresAt := time.Now().Add(-time.Minute)
	contract.ExpiresAt = &expiresAt

	completed := *contract
	completed.Status = models.TransactionStatusCompleted

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
	f.contracts.On("Execute", mock.Anything, contract.ID).Return(&completed, nil)

	payload, _ := json.Marshal(timeoutPayload{ContractID: contract.ID})
	err := f.svc.HandleTimeout(context.Background(), payload)

	require.NoError(t, err)
	f.contracts.AssertCalled(t, "Execute", mock.Anything, contract.ID)
}

func TestContractService_HandleTimeout_InsufficientFundsExpires(t *testing.T) {
	f := newContractFixture()

	cond := timeBasedCondition("1h")
	contract := pendingContract(uuid.New(), uuid.New(), cond, mustMarshal(t, cond))
	expiresAt := time.Now().Add(-time.Minute)
	contract.ExpiresAt = &expiresAt

	expired := *contract
	expired.Status = models.TransactionStatusExpired

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)
	f.contracts.On("Execute", mock.Anything, contract.ID).Return(nil, repository.ErrInsufficientFunds)
	f.contracts.On("Expire", mock.Anything, contract.ID).Return(&expired, nil)

	payload, _ := json.Marshal(timeoutPayload{ContractID: contract.ID})
	err := f.svc.HandleTimeout(context.Background(), payload)

	require.NoError(t, err)
	f.contracts.AssertCalled(t, "Expire", mock.Anything, contract.ID)
}

func TestContractService_HandleTimeout_AlreadySettled(t *testing.T) {
	f := newContractFixture()

	cond := timeBasedCondition("1h")
	contract := pendingContract(uuid.New(), uuid.New(), cond, mustMarshal(t, cond))
	contract.Status = models.TransactionStatusCancelled

	f.contracts.On("GetByID", mock.Anything, contract.ID).Return(contract, nil)

	payload, _ := json.Marshal(timeoutPayload{ContractID: contract.ID})
	err := f.svc.HandleTimeout(context.Background(), payload)

	require.NoError(t, err)
	f.contracts.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

// memoryContractStore — потокобезопасное хранилище для проверки гонки
// одновременных подтверждений. Исполнение линеаризовано: перейти из
// pending в completed можно ровно один раз.
type memoryContractStore struct {
	mu            sync.Mutex
	contract      models.Transaction
	confirmations map[uuid.UUID]models.Confirmation
	executions    int32

	arrivals int32
	ready    chan struct{}
}

func newMemoryContractStore(contract models.Transaction) *memoryContractStore {
	return &memoryContractStore{
		contract:      contract,
		confirmations: make(map[uuid.UUID]models.Confirmation),
		ready:         make(chan struct{}),
	}
}

func (s *memoryContractStore) Create(context.Context, *models.Transaction) error { return nil }

func (s *memoryContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	// Срез состояния снимается до барьера: оба участника видят
	// контракт pending, и только потом кто-либо из них начинает
	// исполнение.
	s.mu.Lock()
	c := s.contract
	s.mu.Unlock()

	if atomic.AddInt32(&s.arrivals, 1) == 2 {
		close(s.ready)
	}
	<-s.ready

	return &c, nil
}

func (s *memoryContractStore) ListByUser(context.Context, uuid.UUID, int, int) ([]models.Transaction, int, error) {
	return nil, 0, nil
}

func (s *memoryContractStore) Cancel(context.Context, uuid.UUID, uuid.UUID) (*models.Transaction, error) {
	return nil, repository.ErrContractNotFound
}

func (s *memoryContractStore) Expire(context.Context, uuid.UUID) (*models.Transaction, error) {
	return nil, repository.ErrContractNotPending
}

func (s *memoryContractStore) Execute(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contract.Status != models.TransactionStatusPending {
		return nil, repository.ErrContractNotPending
	}
	s.contract.Status = models.TransactionStatusCompleted
	s.contract.ConditionMet = true
	atomic.AddInt32(&s.executions, 1)
	c := s.contract
	return &c, nil
}

func (s *memoryContractStore) Stats(context.Context, uuid.UUID) (*models.ContractStats, error) {
	return &models.ContractStats{}, nil
}

func (s *memoryContractStore) Upsert(ctx context.Context, contractID, userID uuid.UUID, confirmed bool, notes *string) (*models.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conf := models.Confirmation{ID: uuid.New(), TransactionID: contractID, UserID: userID, Confirmed: confirmed, Notes: notes}
	s.confirmations[userID] = conf
	return &conf, nil
}

func (s *memoryContractStore) CreatePlaceholders(context.Context, uuid.UUID, []uuid.UUID) error {
	return nil
}

func (s *memoryContractStore) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Confirmation, 0, len(s.confirmations))
	for _, c := range s.confirmations {
		out = append(out, c)
	}
	return out, nil
}

func (s *memoryContractStore) ListPendingForUser(context.Context, uuid.UUID, int, int) ([]models.Confirmation, int, error) {
	return nil, 0, nil
}

func TestContractService_Confirm_ConcurrentExecutesOnce(t *testing.T) {
	fromUser := uuid.New()
	toUser := uuid.New()
	confirmerA := uuid.New()
	confirmerB := uuid.New()

	// Достаточно одного подтверждения из двух: оба участника,
	// подтверждая одновременно, считают условие выполненным и
	// пытаются исполнить контракт.
	cond := multiPartyCondition([]uuid.UUID{confirmerA, confirmerB}, 1)
	raw, err := json.Marshal(cond)
	require.NoError(t, err)

	contract := pendingContract(fromUser, toUser, cond, raw)
	store := newMemoryContractStore(*contract)

	svc := NewContractService(store, store, new(mockWalletLookup), &fakeNotifier{}, new(mockScheduler), time.Second, models.DefaultCurrency)

	var wg sync.WaitGroup
	results := make([]*models.Transaction, 2)
	errs := make([]error, 2)

	for i, userID := range []uuid.UUID{confirmerA, confirmerB} {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			results[i], errs[i] = svc.Confirm(context.Background(), contract.ID, userID, nil)
		}(i, userID)
	}
	wg.Wait()

	// Перевод произошёл ровно один раз, оба участника получили
	// исполненный контракт.
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.executions))
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, models.TransactionStatusCompleted, results[i].Status)
	}
}

func TestContractService_List_DefaultLimit(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()
	userID := uuid.New()

	f.contracts.On("ListByUser", ctx, userID, 20, 0).Return([]models.Transaction{}, 0, nil)

	_, total, err := f.svc.List(ctx, userID, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	f.contracts.AssertExpectations(t)
}

func TestContractService_Stats(t *testing.T) {
	f := newContractFixture()
	ctx := context.Background()
	userID := uuid.New()

	expected := &models.ContractStats{TotalContracts: 10, CompletedContracts: 6, CompletionRate: 0.6}
	f.contracts.On("Stats", ctx, userID).Return(expected, nil)

	stats, err := f.svc.Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, expected, stats)
}
