// Package store implements a simple key-value store. It backs the resolver
// cache, keeping each repository resource materialized at most once per run.
package store

import (
	"errors"
	"sync"
)

var (
	ErrKeyExists      = errors.New("store: key already exists")
	ErrKeyDoesntExist = errors.New("store: key does not exist")
)

type Store interface {
	Set(key string, value interface{}) error
	Get(key string) (interface{}, error)
	GetOrSet(key string, create func() (interface{}, error)) (interface{}, error)
	Delete(key string) error
	Update(key string, newValue interface{}) error
}

type MemStore struct {
	lock  sync.Mutex
	store map[string]interface{}
}

func NewMemStore() Store {
	return &MemStore{
		store: make(map[string]interface{}),
	}
}

// Set is used to set a value to a key.
func (m *MemStore) Set(key string, value interface{}) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.store[key]; ok {
		return ErrKeyExists
	}
	m.store[key] = value
	return nil
}

// Get is used to get a value from a key.
func (m *MemStore) Get(key string) (interface{}, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.store[key]; !ok {
		return nil, ErrKeyDoesntExist
	}
	return m.store[key], nil
}

// GetOrSet returns the value for key, calling create to fill it on a miss.
// The lock is held across create so concurrent callers never fill the same
// key twice. A create error leaves the key unset.
func (m *MemStore) GetOrSet(key string, create func() (interface{}, error)) (interface{}, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if value, ok := m.store[key]; ok {
		return value, nil
	}
	value, err := create()
	if err != nil {
		return nil, err
	}
	m.store[key] = value
	return value, nil
}

// Delete removes the specified key and value.
func (m *MemStore) Delete(key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.store[key]; !ok {
		return ErrKeyDoesntExist
	}
	delete(m.store, key)
	return nil
}

// Update can be used to change the value for a given key.
func (m *MemStore) Update(key string, value interface{}) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.store[key]; !ok {
		return ErrKeyDoesntExist
	}
	m.store[key] = value
	return nil
}
