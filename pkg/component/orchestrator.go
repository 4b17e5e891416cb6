package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Orchestrator starts components in registration order and stops them in
// reverse.
type Orchestrator struct {
	mu         sync.Mutex
	components []Component
	started    int
}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{
		components: make([]Component, 0),
	}
}

func (o *Orchestrator) Register(comp Component) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.components = append(o.components, comp)
}

// Start starts every component. If one fails, the ones already started are
// stopped again before the error is returned.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, comp := range o.components[o.started:] {
		if err := comp.Start(ctx); err != nil {
			startErr := fmt.Errorf("failed to start %s: %w", comp.Name(), err)
			return errors.Join(startErr, o.stopLocked(ctx))
		}
		o.started++
	}
	return nil
}

// Stop stops the started components in reverse order. Every component is
// given the chance to stop; errors are joined.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopLocked(ctx)
}

func (o *Orchestrator) stopLocked(ctx context.Context) error {
	var errs []error
	for ; o.started > 0; o.started-- {
		comp := o.components[o.started-1]
		if err := comp.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", comp.Name(), err))
		}
	}
	return errors.Join(errs...)
}
