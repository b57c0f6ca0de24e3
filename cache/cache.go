// Package cache guarda respostas agregadas dos painéis.
//
// As chaves são versionadas por "geração": qualquer escrita relevante chama Bump,
// o que invalida de uma vez todas as entradas daquele namespace.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Generation(ctx context.Context, namespace string) int64
	Bump(ctx context.Context, namespace string)
}

// Key monta "<namespace>:<geração>:<suffix>".
func Key(ctx context.Context, c Cache, namespace, suffix string) string {
	return namespace + ":" + strconv.FormatInt(c.Generation(ctx, namespace), 10) + ":" + suffix
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory é usado em dev/testes e quando o Redis não está configurado.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	gens    map[string]int64
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		gens:    make(map[string]int64),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expires: m.now().Add(ttl)}
}

func (m *Memory) Generation(_ context.Context, namespace string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[namespace]
}

func (m *Memory) Bump(_ context.Context, namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[namespace]++
	// entradas antigas ficam órfãs; limpa tudo para não crescer sem limite
	prefix := namespace + ":"
	for k := range m.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
}
