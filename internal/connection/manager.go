package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mtgateway/internal/domain"
	"mtgateway/internal/ports"

	"github.com/jpillora/backoff"
)

// Manager owns the session state machine to the terminal. It is the single
// choke point for establishing, probing and re-establishing the session;
// every other component calls EnsureConnected before touching the terminal
// instead of carrying its own retry loop.
//
// A mutex serializes Connect/EnsureConnected/Disconnect so two overlapping
// reconnect attempts cannot race. A caller that invokes Connect while another
// attempt is in flight blocks on the mutex and then observes the completed
// result instead of starting a parallel attempt.
type Manager struct {
	terminal      ports.Terminal
	logger        ports.Logger
	maxRetries    int
	cooldown      time.Duration
	backoffFactor float64

	mu      sync.Mutex
	session domain.Session
	creds   ports.Credentials
}

// Config holds configuration for the connection manager.
type Config struct {
	Terminal   ports.Terminal
	Logger     ports.Logger
	MaxRetries int           // attempts per retry cycle (default 3)
	Cooldown   time.Duration // delay between attempts (default 2s)
	// BackoffFactor grows the cooldown between successive attempts.
	// 1.0 (the default) keeps the spacing fixed.
	BackoffFactor float64
}

// New creates a connection manager. The session starts Disconnected.
func New(cfg Config) (*Manager, error) {
	if cfg.Terminal == nil {
		return nil, fmt.Errorf("terminal is required for connection manager")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for connection manager")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	factor := cfg.BackoffFactor
	if factor < 1.0 {
		factor = 1.0
	}
	return &Manager{
		terminal:      cfg.Terminal,
		logger:        cfg.Logger,
		maxRetries:    maxRetries,
		cooldown:      cooldown,
		backoffFactor: factor,
		session:       domain.Session{State: domain.StateDisconnected},
	}, nil
}

// Connect establishes a session with the terminal, retrying transient
// failures up to the configured bound with a cooldown between attempts.
// Authentication failures are not retried: they fail fast into the Failed
// state. Calling Connect while already connected is idempotent.
func (m *Manager) Connect(ctx context.Context, creds ports.Credentials) domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State == domain.StateConnected {
		return m.okResult("connection: already established")
	}

	m.creds = creds
	m.session.State = domain.StateConnecting
	return m.establish(ctx)
}

// EnsureConnected is the precondition guard invoked before every terminal
// call. A live session returns success immediately; a dropped session
// triggers a fresh bounded retry cycle with its own budget, independent of
// the probe (the probe never consumes a retry attempt). On exhaustion the
// session transitions to Failed and callers must surface the error rather
// than retry indefinitely themselves.
func (m *Manager) EnsureConnected(ctx context.Context) domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.session.State {
	case domain.StateConnected:
		err := m.terminal.Probe(ctx)
		if err == nil {
			return m.okResult("connection: alive")
		}
		m.logger.Warn(ctx, "Terminal session dropped, reconnecting", map[string]interface{}{
			"probeError": err.Error(),
		})
		m.session.State = domain.StateReconnecting
		m.session.ConnectedSince = time.Time{}
		return m.establish(ctx)
	case domain.StateFailed:
		return domain.Fail("connection: session failed (%s), a new Connect call is required", m.session.LastError)
	default:
		return domain.Fail("connection: %s", ports.ErrNotConnected)
	}
}

// Disconnect releases the session unconditionally. Idempotent, never fails.
func (m *Manager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State != domain.StateDisconnected {
		if err := m.terminal.Close(ctx); err != nil {
			m.logger.Warn(ctx, "Error while closing terminal session", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	m.session = domain.Session{State: domain.StateDisconnected}
	m.logger.Info(ctx, "Terminal session released")
}

// IsConnected reports whether the session is in the Connected state. Pure
// state read, no I/O.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.State == domain.StateConnected
}

// State returns the current session state.
func (m *Manager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.State
}

// establish runs one bounded retry cycle against the terminal using the
// stored credentials. Callers must hold the mutex and have already set the
// transition state (Connecting or Reconnecting).
func (m *Manager) establish(ctx context.Context) domain.Result {
	b := &backoff.Backoff{
		Min:    m.cooldown,
		Max:    m.cooldown * time.Duration(1<<uint(m.maxRetries)),
		Factor: m.backoffFactor,
		Jitter: false,
	}

	var lastErr error
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		err := m.terminal.Open(ctx, m.creds)
		if err == nil {
			m.session.State = domain.StateConnected
			m.session.LastError = ""
			m.session.ConnectedSince = time.Now().UTC()
			m.logger.Info(ctx, "Terminal session established", map[string]interface{}{
				"attempt": attempt,
				"server":  m.creds.Server,
			})
			return m.okResult("connection: established")
		}
		lastErr = err
		m.session.LastError = err.Error()

		if errors.Is(err, ports.ErrAuthenticationFailed) {
			// Bad credentials never heal on retry.
			m.session.State = domain.StateFailed
			m.logger.Error(ctx, err, "Terminal authentication failed, not retrying")
			return domain.Fail("connection: %s", err)
		}

		m.logger.Warn(ctx, "Terminal connection attempt failed", map[string]interface{}{
			"attempt":    attempt,
			"maxRetries": m.maxRetries,
			"error":      err.Error(),
		})

		if attempt < m.maxRetries {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				m.session.State = domain.StateFailed
				m.session.LastError = ctx.Err().Error()
				return domain.Fail("connection: %s: %s", ports.ErrContextCanceled, ctx.Err())
			}
		}
	}

	m.session.State = domain.StateFailed
	m.logger.Error(ctx, lastErr, "Terminal connection retries exhausted", map[string]interface{}{
		"maxRetries": m.maxRetries,
	})
	return domain.Fail("connection: retries exhausted after %d attempts: %s", m.maxRetries, lastErr)
}

// okResult builds the success payload for connect-family operations. Callers
// must hold the mutex.
func (m *Manager) okResult(msg string) domain.Result {
	return domain.OK(msg, domain.ConnectionInfo{
		State:          m.session.State,
		ConnectedSince: m.session.ConnectedSince,
	})
}
