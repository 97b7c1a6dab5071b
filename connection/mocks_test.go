package connection

import (
	"sync"

	"github.com/opd-ai/spatialmix/spatial"
)

// connectResult scripts one Connect outcome for the mock session.
type connectResult struct {
	resp *InitResponse
	err  error
}

// mockSession is a scripted MixerSession for manager tests. Connect
// consumes results in order (the last one repeats once the script is
// exhausted) and can be made to block on a channel to hold an attempt open.
type mockSession struct {
	mu              sync.Mutex
	results         []connectResult
	connectCalls    int
	disconnectCalls int
	block           chan struct{}
	sent            []*spatial.Delta
}

func (s *mockSession) Connect(params ConnectParams) (*InitResponse, error) {
	s.mu.Lock()
	s.connectCalls++
	idx := s.connectCalls - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	r := s.results[idx]
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return r.resp, r.err
}

func (s *mockSession) Disconnect() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectCalls++
	return "disconnected by client", nil
}

func (s *mockSession) SendDelta(d *spatial.Delta) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, d)
	return "sent", nil
}

func (s *mockSession) calls() (connects, disconnects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectCalls, s.disconnectCalls
}

// stateRecorder collects state-change notifications for assertion.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) snapshot() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}
