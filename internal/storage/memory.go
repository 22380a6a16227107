package storage

import (
	"context"
	"io"
	"sync"
)

const defaultMemoryURL = "memory://blob"

type Object struct {
	ContentType string
	Data        []byte
}

// Memory keeps objects in process. It serves development and tests.
type Memory struct {
	mu      sync.RWMutex
	prefix  prefix
	objects map[string]Object
}

func NewMemory(publicURL string) *Memory {
	if publicURL == "" {
		publicURL = defaultMemoryURL
	}
	return &Memory{
		prefix:  newPrefix(publicURL),
		objects: make(map[string]Object),
	}
}

func (m *Memory) Upload(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[path] = Object{ContentType: contentType, Data: data}
	m.mu.Unlock()
	return m.prefix.url(path), nil
}

func (m *Memory) Owns(url string) bool {
	return m.prefix.owns(url)
}

func (m *Memory) Key(url string) (string, error) {
	return m.prefix.key(url)
}

func (m *Memory) Delete(ctx context.Context, url string) (bool, error) {
	key, err := m.prefix.key(url)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	delete(m.objects, key)
	return ok, nil
}

// Get returns the object stored at path.
func (m *Memory) Get(path string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	return obj, ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
