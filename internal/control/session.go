package control

import (
	"sync"

	"github.com/google/uuid"
)

const (
	startedPrefix  = "Starting automation task: "
	errorPrefix    = "Error: "
	stoppedMessage = "Automation stopped by user"
)

// State is a copy of the session for rendering.
type State struct {
	Running bool        `json:"running"`
	RunID   string      `json:"run_id,omitempty"`
	Request *RunRequest `json:"request,omitempty"` // only while running
	Logs    []string    `json:"logs"`
}

// Session holds the run flag and the log sequence of the single UI session.
// The log sequence is only ever displayed, never read back by control logic.
type Session struct {
	mu      sync.RWMutex
	running bool
	runID   string
	active  RunRequest
	logs    []string
}

func NewSession() *Session {
	return &Session{logs: []string{}}
}

func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Session) Logs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]string, len(s.logs))
	copy(logs, s.logs)
	st := State{Running: s.running, RunID: s.runID, Logs: logs}
	if s.running {
		req := s.active
		st.Request = &req
	}
	return st
}

// Append adds a message to the log sequence.
func (s *Session) Append(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, msg)
}

// Stop clears the run flag. It does not reach the agent: a run already in
// flight keeps going until it returns on its own. Stop reports whether the
// flag was set.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.running = false
	s.logs = append(s.logs, stoppedMessage)
	return true
}

// begin raises the flag for req, clears the log sequence and returns a new run id.
func (s *Session) begin(req RunRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.runID = uuid.NewString()
	s.active = req
	s.logs = []string{startedPrefix + req.Task}
	return s.runID
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}
