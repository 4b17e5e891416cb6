package component

import (
	"context"
	"log/slog"
	"sync"

	"github.com/veesix-networks/eoax/pkg/logger"
)

// Base carries the context and goroutine bookkeeping of a component. The
// context is cancelled and all goroutines started with Go are waited for in
// StopContext.
type Base struct {
	name   string
	Ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	Logger *slog.Logger
}

func NewBase(name string) *Base {
	return &Base{name: name, Logger: logger.Get(name)}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) StartContext(parentCtx context.Context) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	b.Ctx, b.cancel = context.WithCancel(parentCtx)
}

func (b *Base) StopContext() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// Go runs fn on its own goroutine. A panic in fn is logged and ends only
// that goroutine.
func (b *Base) Go(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.Logger.Error("Goroutine panicked", "component", b.name, "panic", r)
			}
		}()
		fn()
	}()
}
