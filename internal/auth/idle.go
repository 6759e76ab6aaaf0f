package auth

import (
	"sync"
	"time"
)

type IdleState int

const (
	StateActive IdleState = iota
	StateWarning
	StateLoggedOut
)

func (s IdleState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWarning:
		return "warning"
	case StateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// IdleMonitor tracks inactivity for a single session. After
// (idleLimit - warningWindow) without activity the session enters Warning,
// after warningWindow more it is logged out. Any activity before logout
// returns the session to Active and restarts the countdown.
type IdleMonitor struct {
	mu            sync.Mutex
	state         IdleState
	gen           uint64
	idleLimit     time.Duration
	warningWindow time.Duration
	warnTimer     *time.Timer
	logoutTimer   *time.Timer
	onWarning     func()
	onLogout      func()
}

func NewIdleMonitor(idleLimit time.Duration, warningWindow time.Duration, onWarning func(), onLogout func()) *IdleMonitor {
	if warningWindow > idleLimit {
		warningWindow = idleLimit
	}
	m := &IdleMonitor{
		state:         StateActive,
		idleLimit:     idleLimit,
		warningWindow: warningWindow,
		onWarning:     onWarning,
		onLogout:      onLogout,
	}
	m.arm()
	return m
}

// arm schedules the warning timer for the current generation. Timer callbacks
// carry the generation they were armed with; Activity bumps it, so a callback
// that already fired but lost the lock race is recognized as stale.
func (m *IdleMonitor) arm() {
	gen := m.gen
	m.warnTimer = time.AfterFunc(m.idleLimit-m.warningWindow, func() { m.enterWarning(gen) })
}

func (m *IdleMonitor) enterWarning(gen uint64) {
	m.mu.Lock()
	if m.state != StateActive || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.state = StateWarning
	m.logoutTimer = time.AfterFunc(m.warningWindow, func() { m.enterLoggedOut(gen) })
	cb := m.onWarning
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (m *IdleMonitor) enterLoggedOut(gen uint64) {
	m.mu.Lock()
	if m.state != StateWarning || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.state = StateLoggedOut
	cb := m.onLogout
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Activity records user activity. It cancels pending warning/logout timers
// and restarts the idle countdown. After logout it has no effect.
func (m *IdleMonitor) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateLoggedOut {
		return
	}
	m.gen++
	if m.warnTimer != nil {
		m.warnTimer.Stop()
	}
	if m.logoutTimer != nil {
		m.logoutTimer.Stop()
		m.logoutTimer = nil
	}
	m.state = StateActive
	m.arm()
}

func (m *IdleMonitor) State() IdleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stop cancels the timers without firing callbacks, used on explicit logout.
func (m *IdleMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.warnTimer != nil {
		m.warnTimer.Stop()
	}
	if m.logoutTimer != nil {
		m.logoutTimer.Stop()
	}
	m.state = StateLoggedOut
}

// SessionGuard keeps one IdleMonitor per session token and revokes the
// session through the expire callback when a monitor logs out.
type SessionGuard struct {
	mu            sync.Mutex
	monitors      map[string]*IdleMonitor
	idleLimit     time.Duration
	warningWindow time.Duration
	onExpire      func(token string)
}

func NewSessionGuard(idleLimit time.Duration, warningWindow time.Duration, onExpire func(token string)) *SessionGuard {
	return &SessionGuard{
		monitors:      make(map[string]*IdleMonitor),
		idleLimit:     idleLimit,
		warningWindow: warningWindow,
		onExpire:      onExpire,
	}
}

// Touch records activity for the session token, creating a monitor on first
// sight of the token.
func (g *SessionGuard) Touch(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.monitors[token]; ok {
		m.Activity()
		return
	}
	g.monitors[token] = NewIdleMonitor(g.idleLimit, g.warningWindow, nil, func() {
		g.expire(token)
	})
}

func (g *SessionGuard) expire(token string) {
	g.mu.Lock()
	delete(g.monitors, token)
	cb := g.onExpire
	g.mu.Unlock()

	if cb != nil {
		cb(token)
	}
}

// Forget drops the monitor for the token without firing the expire callback.
func (g *SessionGuard) Forget(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.monitors[token]; ok {
		m.Stop()
		delete(g.monitors, token)
	}
}

func (g *SessionGuard) StateOf(token string) IdleState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.monitors[token]; ok {
		return m.State()
	}
	return StateLoggedOut
}
