// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package secrets holds API keys and passwords in sealed memory.
//
// Values are kept in memguard enclaves: encrypted at rest in process
// memory, decrypted into an mlocked buffer only for the duration of a
// Use call. FromEnv additionally scrubs sealed values from the process
// environment so they stop showing up in /proc/self/environ and child
// processes.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrSecretNotFound is returned by Use for names never sealed into the
// store.
var ErrSecretNotFound = errors.New("secret not found")

// interruptOnce arms memguard's interrupt handler a single time per
// process, no matter how many stores exist.
var interruptOnce sync.Once

// Store is a named collection of sealed secrets.
//
// Thread Safety: safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	enclaves map[string]*memguard.Enclave
}

// NewStore returns an empty store.
func NewStore() *Store {
	interruptOnce.Do(memguard.CatchInterrupt)
	return &Store{enclaves: make(map[string]*memguard.Enclave)}
}

// FromEnv seals the named environment variables into a new store and
// removes them from the environment. Unset or empty variables are
// skipped, not errors; callers decide per secret whether absence
// matters.
func FromEnv(names ...string) *Store {
	s := NewStore()
	for _, name := range names {
		value, ok := os.LookupEnv(name)
		if !ok || value == "" {
			continue
		}
		s.Put(name, value)
		os.Unsetenv(name)
	}
	return s
}

// Put seals a value under a name, replacing any previous value. Empty
// values are ignored; memguard cannot seal zero-length buffers. The
// byte copy handed to memguard is wiped once sealed; the caller's
// string is beyond reach and should not be retained.
func (s *Store) Put(name, value string) {
	if value == "" {
		return
	}
	enclave := memguard.NewEnclave([]byte(value))

	s.mu.Lock()
	s.enclaves[name] = enclave
	s.mu.Unlock()
}

// Has reports whether a secret is sealed under the given name.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.enclaves[name]
	return ok
}

// Len reports how many secrets the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.enclaves)
}

// Use decrypts a secret and passes it to fn. The locked buffer is
// destroyed when Use returns; the string fn receives is a heap copy, so
// callers that retain it (HTTP clients holding an API key) own its
// lifetime from there.
func (s *Store) Use(name string, fn func(value string) error) error {
	s.mu.RLock()
	enclave, ok := s.enclaves[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}

	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open secret %s: %w", name, err)
	}
	defer buf.Destroy()

	return fn(string(buf.Bytes()))
}

// Purge wipes every sealed value and memguard's session key. Call at
// process exit; no store is usable afterwards.
func Purge() {
	memguard.Purge()
}
