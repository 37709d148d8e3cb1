// Package connectivity reports whether the catalog is reachable.
package connectivity

import (
	"errors"
	"sync/atomic"
)

// ErrOffline is returned when an operation is skipped for lack of a
// connection.
var ErrOffline = errors.New("no internet connection")

// Probe reports current network reachability. IsConnected must be cheap
// and safe to call from any goroutine.
type Probe interface {
	IsConnected() bool
}

// Static is a Probe whose state is set explicitly.
type Static struct {
	connected atomic.Bool
}

// NewStatic creates a Static probe.
func NewStatic(connected bool) *Static {
	s := &Static{}
	s.connected.Store(connected)
	return s
}

// IsConnected implements Probe.
func (s *Static) IsConnected() bool {
	return s.connected.Load()
}

// Set changes the reported state.
func (s *Static) Set(connected bool) {
	s.connected.Store(connected)
}
