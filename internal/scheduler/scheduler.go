package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lukamba/kitadi-backend/internal/goroutine"
	"github.com/lukamba/kitadi-backend/internal/logger"
)

// JobContractTimeout — имя задания отложенной проверки смарт-контракта.
const JobContractTimeout = "contract_timeout"

// Handler обрабатывает сработавшее задание. Доставка гарантируется
// не менее одного раза, поэтому обработчик обязан быть идемпотентным.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Job — отложенное одноразовое задание.
type Job struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	RunAt       time.Time       `db:"run_at" json:"run_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// JobStore хранит задания. Персистентность нужна, чтобы таймауты
// контрактов переживали рестарт процесса.
type JobStore interface {
	Insert(ctx context.Context, job *Job) error
	// GetPending возвращает задание, если оно ещё не выполнено,
	// иначе nil.
	GetPending(ctx context.Context, id uuid.UUID) (*Job, error)
	// MarkCompleted фиксирует выполнение. Вызывается после обработчика:
	// падение процесса посреди обработки приводит к повторной доставке
	// после рестарта, а не к потере задания.
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	ListPending(ctx context.Context) ([]Job, error)
}

// TimerScheduler выполняет задания по in-process таймерам, храня их
// в JobStore. При старте невыполненные задания взводятся заново.
type TimerScheduler struct {
	store JobStore
	ctx   context.Context

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewTimerScheduler создаёт планировщик. Контекст ограничивает время
// жизни всех таймеров.
func NewTimerScheduler(ctx context.Context, store JobStore) *TimerScheduler {
	return &TimerScheduler{
		store:    store,
		ctx:      ctx,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler привязывает обработчик к имени задания.
func (s *TimerScheduler) RegisterHandler(name string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

// ScheduleOnce сохраняет задание и взводит таймер на delay.
func (s *TimerScheduler) ScheduleOnce(ctx context.Context, name string, payload interface{}, delay time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("scheduler: не удалось сериализовать payload: %w", err)
	}

	job := &Job{
		Name:    name,
		Payload: raw,
		RunAt:   time.Now().Add(delay),
	}
	if err := s.store.Insert(ctx, job); err != nil {
		return fmt.Errorf("scheduler: не удалось сохранить задание: %w", err)
	}

	s.arm(job.ID, delay)
	return nil
}

// RecoverPending взводит таймеры для заданий, оставшихся с прошлого
// запуска. Просроченные срабатывают сразу.
func (s *TimerScheduler) RecoverPending(ctx context.Context) error {
	jobs, err := s.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: не удалось загрузить задания: %w", err)
	}

	for _, job := range jobs {
		s.arm(job.ID, time.Until(job.RunAt))
	}

	if len(jobs) > 0 {
		logger.Log.Infof("scheduler: восстановлено заданий: %d", len(jobs))
	}
	return nil
}

func (s *TimerScheduler) arm(id uuid.UUID, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	goroutine.SafeGoWithContext(s.ctx, func(ctx context.Context) {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.fire(ctx, id)
		}
	})
}

func (s *TimerScheduler) fire(ctx context.Context, id uuid.UUID) {
	job, err := s.store.GetPending(ctx, id)
	if err != nil {
		logger.Log.Errorf("scheduler: не удалось получить задание %s: %v", id, err)
		return
	}
	if job == nil {
		// Уже выполнено другим таймером.
		return
	}

	s.mu.RLock()
	handler, ok := s.handlers[job.Name]
	s.mu.RUnlock()

	if !ok {
		logger.Log.Errorf("scheduler: нет обработчика для задания %q", job.Name)
		return
	}

	// Ошибки обработчика только логируются: повторов сверх
	// at-least-once нет, идемпотентность обеспечивает обработчик.
	if err := handler(ctx, job.Payload); err != nil {
		logger.Log.Errorf("scheduler: задание %q (%s) завершилось с ошибкой: %v", job.Name, job.ID, err)
	}

	if err := s.store.MarkCompleted(ctx, id); err != nil {
		logger.Log.Errorf("scheduler: не удалось отметить задание %s выполненным: %v", id, err)
	}
}
