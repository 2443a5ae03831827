package provider

import (
	"context"
	"sync"
)

// MockAnalyzer cycles through canned signals. Tests and the demo use it
// in place of a live provider.
type MockAnalyzer struct {
	Signals []Signal
	Err     error

	mu    sync.Mutex
	calls int
}

func (m *MockAnalyzer) Analyze(_ context.Context, _ Snapshot) (Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return Signal{}, m.Err
	}
	if len(m.Signals) == 0 {
		return Signal{Stance: StanceNeutral, Confidence: 0.3}, nil
	}
	return m.Signals[(m.calls-1)%len(m.Signals)], nil
}

// Calls reports how many times Analyze has been invoked.
func (m *MockAnalyzer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
