// Package component provides the start/stop lifecycle shared by the daemon's
// long-running parts.
package component

import "context"

type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
