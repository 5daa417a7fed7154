package generator

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/shouni/chat-image-kit/pkg/settings"
)

// --- Mocks ---

type mockSource struct {
	mu sync.Mutex
	s  settings.GenerationSettings
}

func (m *mockSource) Current() settings.GenerationSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

type mockRefs struct {
	mu      sync.Mutex
	images  []string
	cleared bool
}

func (m *mockRefs) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.images))
	copy(out, m.images)
	return out
}

func (m *mockRefs) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = nil
	m.cleared = true
}

func (m *mockRefs) wasCleared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

type mockHTTPClient struct {
	data    []byte
	err     error
	fetched string
}

func (m *mockHTTPClient) FetchBytes(_ context.Context, url string) ([]byte, error) {
	m.fetched = url
	return m.data, m.err
}

func (m *mockHTTPClient) Do(_ *http.Request) (*http.Response, error) {
	return nil, m.err
}

func (m *mockHTTPClient) DoRequest(_ *http.Request) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) FetchAndDecodeJSON(_ context.Context, _ string, _ any) error {
	return m.err
}

func (m *mockHTTPClient) PostJSONAndFetchBytes(_ context.Context, _ string, _ any) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) PostRawBodyAndFetchBytes(_ context.Context, _ string, _ []byte, _ string) ([]byte, error) {
	return m.data, m.err
}

func (m *mockHTTPClient) IsSafeURL(_ string) (bool, error) {
	return true, nil
}

func (m *mockHTTPClient) IsSecureServiceURL(_ string) bool {
	return true
}

type mockReader struct {
	data []byte
	err  error
}

func (m *mockReader) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *mockReader) List(_ context.Context, _ string, _ func(string) error) error {
	return nil
}
