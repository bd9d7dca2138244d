package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLockOrder_IndependentOfDirection(t *testing.T) {
	a := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	b := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	first, second := lockOrder(a, b)
	assert.Equal(t, a, first)
	assert.Equal(t, b, second)

	// Встречный перевод блокирует те же строки в том же порядке.
	reversedFirst, reversedSecond := lockOrder(b, a)
	assert.Equal(t, first, reversedFirst)
	assert.Equal(t, second, reversedSecond)
}

func TestLockOrder_RandomPairs(t *testing.T) {
	for i := 0; i < 100; i++ {
		a, b := uuid.New(), uuid.New()

		first, second := lockOrder(a, b)
		reversedFirst, reversedSecond := lockOrder(b, a)

		assert.LessOrEqual(t, first.String(), second.String())
		assert.Equal(t, first, reversedFirst)
		assert.Equal(t, second, reversedSecond)
	}
}
