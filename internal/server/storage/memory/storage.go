// Package memory implements the storage interfaces in process memory.
// Each collection has its own mutex, so uniqueness checks and inserts are
// atomic with respect to other writers of the same collection.
package memory

import (
	"sync"

	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/storage"
)

var (
	_ storage.ProfileStorage    = (*Storage)(nil)
	_ storage.CredentialStorage = (*Storage)(nil)
	_ storage.SessionStorage    = (*Storage)(nil)
)

// Storage keeps profiles, credentials and device sessions in maps.
// It is used by tests and by single-process development setups.
type Storage struct {
	profiles   map[int64]*models.Profile
	usernames  map[string]int64 // canonical username -> uid
	creds      map[int64]*models.Credential
	emails     map[string]int64 // normalized email -> uid
	sessions   map[string]*models.DeviceSession
	nextUID    int64
	profilesMu sync.RWMutex
	credsMu    sync.RWMutex
	sessionsMu sync.RWMutex
}

// New creates an empty in-memory storage
func New() *Storage {
	return &Storage{
		profiles:  make(map[int64]*models.Profile),
		usernames: make(map[string]int64),
		creds:     make(map[int64]*models.Credential),
		emails:    make(map[string]int64),
		sessions:  make(map[string]*models.DeviceSession),
	}
}

// Close is a no-op, present for parity with the durable backends
func (s *Storage) Close() error {
	return nil
}
