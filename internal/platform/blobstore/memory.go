package blobstore

import (
	"context"
	"io"
	"sync"
)

type memObject struct {
	contentType string
	data        []byte
}

// Memory keeps blobs in a map. For tests and throwaway runs.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]memObject
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]memObject)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Put(_ context.Context, key, contentType string, r io.Reader) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	data, err := readLimited(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.blobs[k] = memObject{contentType: contentType, data: data}
	m.mu.Unlock()
	return RefURL(k), nil
}

func (m *Memory) Get(_ context.Context, key string) (Object, io.ReadCloser, error) {
	k, err := CleanKey(key)
	if err != nil {
		return Object{}, nil, err
	}
	m.mu.RLock()
	obj, ok := m.blobs[k]
	m.mu.RUnlock()
	if !ok {
		return Object{}, nil, ErrNotFound
	}
	return Object{Key: k, ContentType: obj.contentType, Size: int64(len(obj.data))}, nopReader(obj.data), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.blobs, k)
	m.mu.Unlock()
	return nil
}
