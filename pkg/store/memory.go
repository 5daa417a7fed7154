package store

import (
	"context"
	"sync"
)

// Memory はメモリ上の Store 実装です。テストや一時利用向けです。
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemory は空の Memory ストアを作ります。
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

// Load はキーに対応する値を返します。
func (s *Memory) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.m[key]
	return v, ok, nil
}

// Save はキーに値を保存します。
func (s *Memory) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = value
	return nil
}
