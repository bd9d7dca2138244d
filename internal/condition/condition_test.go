package condition

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lukamba/kitadi-backend/internal/models"
)

func confirmed(userID uuid.UUID) models.Confirmation {
	return models.Confirmation{UserID: userID, Confirmed: true}
}

func pending(userID uuid.UUID) models.Confirmation {
	return models.Confirmation{UserID: userID, Confirmed: false}
}

func TestValidate_Manual(t *testing.T) {
	cond := &Condition{Type: TypeManual, Manual: &Manual{ConfirmUserID: uuid.New()}}
	assert.NoError(t, cond.Validate())

	cond = &Condition{Type: TypeManual}
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)

	cond = &Condition{Type: TypeManual, Manual: &Manual{}}
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)
}

func TestValidate_MultiParty(t *testing.T) {
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()

	cond := &Condition{Type: TypeMultiParty, MultiParty: &MultiParty{
		Confirmers:            []uuid.UUID{u1, u2, u3},
		RequiredConfirmations: 2,
	}}
	assert.NoError(t, cond.Validate())

	// required больше числа участников
	cond.MultiParty.RequiredConfirmations = 4
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)

	// required меньше единицы
	cond.MultiParty.RequiredConfirmations = 0
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)

	// пустой список участников
	cond = &Condition{Type: TypeMultiParty, MultiParty: &MultiParty{RequiredConfirmations: 1}}
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)

	// дубликаты участников
	cond = &Condition{Type: TypeMultiParty, MultiParty: &MultiParty{
		Confirmers:            []uuid.UUID{u1, u1},
		RequiredConfirmations: 1,
	}}
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)
}

func TestValidate_TimeBased(t *testing.T) {
	cond := &Condition{Type: TypeTimeBased, TimeBased: &TimeBased{Timeout: "30m"}}
	assert.NoError(t, cond.Validate())

	cond.TimeBased.Timeout = "soon"
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)

	cond.TimeBased.Timeout = ""
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)
}

func TestValidate_UnknownType(t *testing.T) {
	cond := &Condition{Type: "telepathy"}
	assert.ErrorIs(t, cond.Validate(), ErrInvalid)
}

func TestParse(t *testing.T) {
	userID := uuid.New()
	raw, err := json.Marshal(&Condition{Type: TypeManual, Manual: &Manual{ConfirmUserID: userID}})
	assert.NoError(t, err)

	cond, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, TypeManual, cond.Type)
	assert.Equal(t, userID, cond.Manual.ConfirmUserID)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse(json.RawMessage(`{"type":"multi_party"}`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestIsSatisfied_Manual(t *testing.T) {
	designated := uuid.New()
	stranger := uuid.New()
	cond := &Condition{Type: TypeManual, Manual: &Manual{ConfirmUserID: designated}}
	now := time.Now()

	assert.False(t, cond.IsSatisfied(nil, now, nil))
	assert.False(t, cond.IsSatisfied([]models.Confirmation{pending(designated)}, now, nil))
	assert.False(t, cond.IsSatisfied([]models.Confirmation{confirmed(stranger)}, now, nil))
	assert.True(t, cond.IsSatisfied([]models.Confirmation{confirmed(designated)}, now, nil))
}

func TestIsSatisfied_MultiParty_FirstKWins(t *testing.T) {
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()
	cond := &Condition{Type: TypeMultiParty, MultiParty: &MultiParty{
		Confirmers:            []uuid.UUID{u1, u2, u3},
		RequiredConfirmations: 2,
	}}
	now := time.Now()

	// Нулевое и одно подтверждение — недостаточно.
	assert.False(t, cond.IsSatisfied([]models.Confirmation{pending(u1), pending(u2), pending(u3)}, now, nil))
	assert.False(t, cond.IsSatisfied([]models.Confirmation{confirmed(u1), pending(u2), pending(u3)}, now, nil))

	// Любые два из трёх — достаточно, порядок не важен.
	assert.True(t, cond.IsSatisfied([]models.Confirmation{confirmed(u2), confirmed(u3), pending(u1)}, now, nil))
	assert.True(t, cond.IsSatisfied([]models.Confirmation{confirmed(u1), confirmed(u2), pending(u3)}, now, nil))

	// Повторное подтверждение того же участника не меняет результат:
	// запись одна на пару (контракт, пользователь).
	assert.False(t, cond.IsSatisfied([]models.Confirmation{confirmed(u1), pending(u2), pending(u3)}, now, nil))
}

func TestIsSatisfied_TimeBased(t *testing.T) {
	cond := &Condition{Type: TypeTimeBased, TimeBased: &TimeBased{Timeout: "1m"}}
	now := time.Now()

	before := now.Add(time.Minute)
	after := now.Add(-time.Minute)

	assert.False(t, cond.IsSatisfied(nil, now, &before))
	assert.True(t, cond.IsSatisfied(nil, now, &after))
	assert.True(t, cond.IsSatisfied(nil, now, &now))
	assert.False(t, cond.IsSatisfied(nil, now, nil))
}

func TestCanConfirm(t *testing.T) {
	designated := uuid.New()
	other := uuid.New()

	manual := &Condition{Type: TypeManual, Manual: &Manual{ConfirmUserID: designated}}
	assert.True(t, manual.CanConfirm(designated))
	assert.False(t, manual.CanConfirm(other))

	multi := &Condition{Type: TypeMultiParty, MultiParty: &MultiParty{
		Confirmers:            []uuid.UUID{designated},
		RequiredConfirmations: 1,
	}}
	assert.True(t, multi.CanConfirm(designated))
	assert.False(t, multi.CanConfirm(other))

	// time_based никто не подтверждает вручную
	timed := &Condition{Type: TypeTimeBased, TimeBased: &TimeBased{Timeout: "1h"}}
	assert.False(t, timed.CanConfirm(designated))
}

func TestConfirmerIDs(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()

	manual := &Condition{Type: TypeManual, Manual: &Manual{ConfirmUserID: u1}}
	assert.Equal(t, []uuid.UUID{u1}, manual.ConfirmerIDs())

	multi := &Condition{Type: TypeMultiParty, MultiParty: &MultiParty{
		Confirmers:            []uuid.UUID{u1, u2},
		RequiredConfirmations: 1,
	}}
	assert.ElementsMatch(t, []uuid.UUID{u1, u2}, multi.ConfirmerIDs())

	timed := &Condition{Type: TypeTimeBased, TimeBased: &TimeBased{Timeout: "1h"}}
	assert.Empty(t, timed.ConfirmerIDs())
}

func TestParseTimeout(t *testing.T) {
	cases := map[string]time.Duration{
		"7d":  7 * 24 * time.Hour,
		"24h": 24 * time.Hour,
		"30m": 30 * time.Minute,
		"1D":  24 * time.Hour,
		" 2h": 2 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseTimeout(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "d", "7", "-1d", "0h", "1w", "abc", "1.5h"} {
		_, err := ParseTimeout(in)
		assert.Error(t, err, in)
	}
}

func TestTimeout_FallbackOnReparse(t *testing.T) {
	// Сохранённое значение могло испортиться: при повторном разборе
	// применяется таймаут по умолчанию, а не ошибка.
	cond := &Condition{Type: TypeTimeBased, TimeBased: &TimeBased{Timeout: "garbage"}}
	assert.Equal(t, DefaultTimeout, cond.Timeout())

	cond.TimeBased.Timeout = "2h"
	assert.Equal(t, 2*time.Hour, cond.Timeout())
}
