package condition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lukamba/kitadi-backend/internal/models"
)

// Type определяет вид условия смарт-контракта.
type Type string

const (
	// TypeManual — контракт исполняется после подтверждения одним
	// назначенным пользователем.
	TypeManual Type = "manual_confirmation"
	// TypeMultiParty — контракт исполняется, когда подтвердили не менее
	// required_confirmations участников из списка confirmers.
	TypeMultiParty Type = "multi_party"
	// TypeTimeBased — контракт исполняется по истечении таймаута,
	// подтверждения людьми не предусмотрены.
	TypeTimeBased Type = "time_based"
)

// DefaultTimeout применяется, если сохранённый таймаут не удалось
// распарсить повторно при срабатывании отложенной проверки.
const DefaultTimeout = 7 * 24 * time.Hour

// ErrInvalid возвращается при структурно некорректном условии.
var ErrInvalid = errors.New("invalid contract condition")

// Manual требует подтверждения от конкретного пользователя.
type Manual struct {
	ConfirmUserID uuid.UUID `json:"confirm_user_id"`
}

// MultiParty требует подтверждений от required из confirmers участников.
// Побеждают первые required подтвердивших, полный состав не обязателен.
type MultiParty struct {
	Confirmers            []uuid.UUID `json:"confirmers"`
	RequiredConfirmations int         `json:"required_confirmations"`
}

// TimeBased исполняет контракт по истечении таймаута.
// Таймаут задаётся строкой вида "3d", "12h" или "45m".
type TimeBased struct {
	Timeout string `json:"timeout"`
}

// Condition — размеченное объединение условий: поле Type определяет,
// какой из вариантов заполнен. Условие выбирается при создании
// контракта и после этого неизменно.
type Condition struct {
	Type       Type        `json:"type"`
	Manual     *Manual     `json:"manual,omitempty"`
	MultiParty *MultiParty `json:"multi_party,omitempty"`
	TimeBased  *TimeBased  `json:"time_based,omitempty"`
}

// Parse разбирает условие из JSON (поле conditions транзакции) и
// валидирует его.
func Parse(raw json.RawMessage) (*Condition, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: условие не задано", ErrInvalid)
	}

	var cond Condition
	if err := json.Unmarshal(raw, &cond); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := cond.Validate(); err != nil {
		return nil, err
	}

	return &cond, nil
}

// Validate проверяет, что для заявленного типа заполнены все
// обязательные поля. Проверка исчерпывающая: неизвестный тип — ошибка.
func (c *Condition) Validate() error {
	switch c.Type {
	case TypeManual:
		if c.Manual == nil || c.Manual.ConfirmUserID == uuid.Nil {
			return fmt.Errorf("%w: manual_confirmation требует confirm_user_id", ErrInvalid)
		}
		return nil

	case TypeMultiParty:
		if c.MultiParty == nil || len(c.MultiParty.Confirmers) == 0 {
			return fmt.Errorf("%w: multi_party требует непустой список confirmers", ErrInvalid)
		}
		seen := make(map[uuid.UUID]struct{}, len(c.MultiParty.Confirmers))
		for _, id := range c.MultiParty.Confirmers {
			if id == uuid.Nil {
				return fmt.Errorf("%w: multi_party содержит пустой идентификатор", ErrInvalid)
			}
			if _, ok := seen[id]; ok {
				return fmt.Errorf("%w: multi_party содержит повторяющихся участников", ErrInvalid)
			}
			seen[id] = struct{}{}
		}
		required := c.MultiParty.RequiredConfirmations
		if required < 1 || required > len(c.MultiParty.Confirmers) {
			return fmt.Errorf("%w: required_confirmations должно быть от 1 до %d", ErrInvalid, len(c.MultiParty.Confirmers))
		}
		return nil

	case TypeTimeBased:
		if c.TimeBased == nil || c.TimeBased.Timeout == "" {
			return fmt.Errorf("%w: time_based требует timeout", ErrInvalid)
		}
		if _, err := ParseTimeout(c.TimeBased.Timeout); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: неизвестный тип условия %q", ErrInvalid, c.Type)
	}
}

// IsSatisfied решает, выполнено ли условие при текущем наборе
// подтверждений. Для time_based ответ определяется только дедлайном:
// менеджер жизненного цикла запрашивает его из обработчика таймаута.
func (c *Condition) IsSatisfied(confirmations []models.Confirmation, now time.Time, expiresAt *time.Time) bool {
	switch c.Type {
	case TypeManual:
		for _, conf := range confirmations {
			if conf.Confirmed && conf.UserID == c.Manual.ConfirmUserID {
				return true
			}
		}
		return false

	case TypeMultiParty:
		confirmed := 0
		for _, conf := range confirmations {
			if conf.Confirmed {
				confirmed++
			}
		}
		return confirmed >= c.MultiParty.RequiredConfirmations

	case TypeTimeBased:
		return expiresAt != nil && !now.Before(*expiresAt)

	default:
		return false
	}
}

// CanConfirm сообщает, вправе ли пользователь подтверждать условие.
// Для time_based подтверждений людьми нет.
func (c *Condition) CanConfirm(userID uuid.UUID) bool {
	switch c.Type {
	case TypeManual:
		return c.Manual.ConfirmUserID == userID
	case TypeMultiParty:
		for _, id := range c.MultiParty.Confirmers {
			if id == userID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ConfirmerIDs возвращает известных при создании подтверждающих —
// для них создаются строки-заготовки подтверждений.
func (c *Condition) ConfirmerIDs() []uuid.UUID {
	switch c.Type {
	case TypeManual:
		return []uuid.UUID{c.Manual.ConfirmUserID}
	case TypeMultiParty:
		ids := make([]uuid.UUID, len(c.MultiParty.Confirmers))
		copy(ids, c.MultiParty.Confirmers)
		return ids
	default:
		return nil
	}
}

// Timeout возвращает длительность таймаута time_based условия.
// При повторном разборе сохранённого значения ошибки не фатальны:
// возвращается DefaultTimeout.
func (c *Condition) Timeout() time.Duration {
	if c.Type != TypeTimeBased || c.TimeBased == nil {
		return 0
	}
	d, err := ParseTimeout(c.TimeBased.Timeout)
	if err != nil {
		return DefaultTimeout
	}
	return d
}

// ParseTimeout разбирает строку таймаута: целое число с суффиксом
// d (дни), h (часы) или m (минуты). Например "7d", "24h", "30m".
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("некорректный таймаут %q", s)
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("некорректный таймаут %q", s)
	}

	switch s[len(s)-1] {
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'm':
		return time.Duration(value) * time.Minute, nil
	default:
		return 0, fmt.Errorf("некорректный таймаут %q: ожидается суффикс d, h или m", s)
	}
}
