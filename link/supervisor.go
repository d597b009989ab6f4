// Package link owns the single bus connection and recovers it when transfers fail.
package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/mklimuk/chargemon"
	"github.com/mklimuk/chargemon/charger"
	"github.com/mklimuk/chargemon/chgctx"
	"github.com/mklimuk/chargemon/gpio"
)

type State int

const (
	Disconnected State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "READY"
	}
	return "DISCONNECTED"
}

// Opener opens and configures a new bus link.
type Opener func(ctx context.Context) (chargemon.Link, error)

const maxAttempts = 2

// Supervisor holds at most one open link. It is not safe for concurrent use;
// callers serialize access (see monitor.Monitor).
type Supervisor struct {
	open     Opener
	address  byte
	link     chargemon.Link
	expander *gpio.MCP23017
	state    State
}

type Opt func(*Supervisor)

// WithExpanderAddress sets the 7-bit address of the GPIO expander.
func WithExpanderAddress(address byte) Opt {
	return func(s *Supervisor) {
		s.address = address
	}
}

func NewSupervisor(open Opener, opts ...Opt) *Supervisor {
	s := &Supervisor{open: open, address: gpio.DefaultMCP23017Address}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) State() State {
	return s.state
}

// EnsureReady opens the link and configures the expander pins unless the link is already up.
func (s *Supervisor) EnsureReady(ctx context.Context) error {
	if s.state == Ready {
		return nil
	}
	s.teardown()
	logger := chgctx.Logger(ctx)
	l, err := s.open(ctx)
	if err != nil {
		logger.Warn("could not open link", "error", err)
		return fmt.Errorf("%w: %w", chargemon.ErrLinkUnavailable, err)
	}
	expander := gpio.NewMCP23017(l, s.address)
	err = expander.ConfigureForActiveLowPullup(ctx)
	if err != nil {
		_ = l.Close()
		logger.Warn("could not configure expander", "addr", fmt.Sprintf("%#x", s.address), "error", err)
		return fmt.Errorf("%w: %w", chargemon.ErrLinkUnavailable, err)
	}
	s.link = l
	s.expander = expander
	s.state = Ready
	logger.Info("link initialized", "addr", fmt.Sprintf("%#x", s.address))
	return nil
}

// Read returns the current LED snapshot. A failed read drops the link and is retried once
// over a freshly opened one.
func (s *Supervisor) Read(ctx context.Context) (charger.Snapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.EnsureReady(ctx); err != nil {
			return 0, err
		}
		snap, err := s.expander.ReadSnapshot(ctx)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		chgctx.Logger(ctx).Warn("snapshot read failed", "attempt", attempt, "error", err)
		s.teardown()
	}
	return 0, fmt.Errorf("%w: %w", chargemon.ErrLinkUnavailable, lastErr)
}

// Do runs fn against the expander over a ready link. A failure drops the link without retrying.
func (s *Supervisor) Do(ctx context.Context, fn func(ctx context.Context, expander *gpio.MCP23017) error) error {
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}
	err := fn(ctx, s.expander)
	// argument errors are rejected before any I/O so the link is still healthy
	if err != nil && !errors.Is(err, chargemon.ErrInvalidArgument) {
		s.teardown()
	}
	return err
}

// Close drops the link. It never fails.
func (s *Supervisor) Close() error {
	s.teardown()
	return nil
}

func (s *Supervisor) teardown() {
	if s.link != nil {
		_ = s.link.Close()
	}
	s.link = nil
	s.expander = nil
	s.state = Disconnected
}
