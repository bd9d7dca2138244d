package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/lukamba/kitadi-backend/internal/logger"
)

// SafeGo запускает горутину с обработкой panic. Паника в фоновой
// задаче (рассылка уведомлений, таймер контракта) не должна ронять
// процесс с удержанными средствами.
func SafeGo(fn func()) {
	go func() {
		defer recoverPanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer recoverPanic()
		fn(ctx)
	}()
}

func recoverPanic() {
	if r := recover(); r != nil {
		logger.Log.Errorf("panic в горутине: %v\nstack:\n%s", r, debug.Stack())
	}
}
