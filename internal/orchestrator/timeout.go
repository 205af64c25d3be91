package orchestrator

import "time"

// timeoutSupervisor owns the two orthogonal per-attempt timers of spec
// §4.2: initialToken (start-to-first-token) and interToken (max gap
// between successive tokens). Expiry of either is reported on fired; the
// caller selects on it alongside producer chunks.
type timeoutSupervisor struct {
	cfg   TimeoutConfig
	timer *time.Timer
	fired chan timeoutKind
	armed timeoutKind
}

type timeoutKind string

const (
	timeoutInitialToken timeoutKind = "initial_token"
	timeoutInterToken   timeoutKind = "inter_token"
)

func newTimeoutSupervisor(cfg TimeoutConfig) *timeoutSupervisor {
	return &timeoutSupervisor{cfg: cfg, fired: make(chan timeoutKind, 1)}
}

// armInitial starts the initialToken timer, if configured. Returns true if
// armed (used by the caller to decide whether to emit TIMEOUT_START).
func (s *timeoutSupervisor) armInitial() bool {
	if s.cfg.InitialToken <= 0 {
		return false
	}
	s.stop()
	s.armed = timeoutInitialToken
	s.timer = time.AfterFunc(s.cfg.InitialToken, func() { s.notify(timeoutInitialToken) })
	return true
}

// onToken resets the interToken timer after each token arrives, arming it
// on first use. Returns true the first time it arms (for TIMEOUT_START).
func (s *timeoutSupervisor) onToken() bool {
	armedNow := s.armed != timeoutInterToken
	s.stop()
	if s.cfg.InterToken <= 0 {
		return false
	}
	s.armed = timeoutInterToken
	s.timer = time.AfterFunc(s.cfg.InterToken, func() { s.notify(timeoutInterToken) })
	return armedNow
}

func (s *timeoutSupervisor) notify(kind timeoutKind) {
	select {
	case s.fired <- kind:
	default:
	}
}

func (s *timeoutSupervisor) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.armed = ""
}
