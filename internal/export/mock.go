package export

import (
	"context"
	"sync"
)

// MockExporter is a test double that keeps objects in memory.
type MockExporter struct {
	PutErr error

	mu           sync.Mutex
	Objects      map[string][]byte
	ContentTypes map[string]string
}

var _ Exporter = (*MockExporter)(nil)

// NewMockExporter creates an empty MockExporter.
func NewMockExporter() *MockExporter {
	return &MockExporter{
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

func (m *MockExporter) Put(_ context.Context, key string, body []byte, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = append([]byte(nil), body...)
	m.ContentTypes[key] = contentType
	return nil
}
