package testutil

import "sync"

// MockProgressTracker is a mock implementation of ProgressTracker for testing.
// It is safe for concurrent use because parts report progress from their own
// goroutines.
type MockProgressTracker struct {
	mu             sync.Mutex
	completeCalled bool
	lastError      error
	updates        []ProgressUpdate
}

// ProgressUpdate represents a single progress update event.
type ProgressUpdate struct {
	Transferred int64
	Total       int64
}

// Update records a progress update.
func (m *MockProgressTracker) Update(bytesTransferred, totalBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, ProgressUpdate{
		Transferred: bytesTransferred,
		Total:       totalBytes,
	})
}

// Complete marks the operation as complete.
func (m *MockProgressTracker) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalled = true
}

// Error records an error.
func (m *MockProgressTracker) Error(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = err
}

// Updates returns a copy of the recorded updates.
func (m *MockProgressTracker) Updates() []ProgressUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProgressUpdate(nil), m.updates...)
}

// CompleteCalled reports whether Complete was called.
func (m *MockProgressTracker) CompleteCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalled
}

// LastError returns the error passed to Error, if any.
func (m *MockProgressTracker) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}
