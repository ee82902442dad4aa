package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
	"github.com/chatcart/chatcart-backend/internal/utils"
)

// SessionManager loads and saves conversation sessions. Concurrent webhook
// deliveries for the same customer are serialized through a per-key mutex so
// two turns cannot clobber each other's read-modify-write.
type SessionManager struct {
	store storage.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionManager creates a new session manager
func NewSessionManager(store storage.Store) *SessionManager {
	return &SessionManager{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (sm *SessionManager) keyLock(businessID uint, phone string) *sync.Mutex {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	key := utils.NormalizePhone(phone)
	lock, exists := sm.locks[sessionLockKey(businessID, key)]
	if !exists {
		lock = &sync.Mutex{}
		sm.locks[sessionLockKey(businessID, key)] = lock
	}
	return lock
}

func sessionLockKey(businessID uint, phone string) string {
	return fmt.Sprintf("%d:%s", businessID, phone)
}

// Lock acquires the per-(business, customer) session lock and returns the
// unlock function.
func (sm *SessionManager) Lock(businessID uint, phone string) func() {
	lock := sm.keyLock(businessID, phone)
	lock.Lock()
	return lock.Unlock
}

// GetOrCreate loads the customer's session, creating it on first contact. A
// session found stale is reset to idle/empty-cart and rewritten before use.
func (sm *SessionManager) GetOrCreate(businessID uint, customerPhone string) (*models.ChatSession, error) {
	phone := utils.NormalizePhone(customerPhone)

	session, err := sm.store.GetSession(businessID, phone)
	if errors.Is(err, storage.ErrNotFound) {
		session = &models.ChatSession{
			BusinessID:    businessID,
			CustomerPhone: phone,
			State:         models.StateIdle,
			LastActivity:  time.Now(),
		}
		if err := sm.store.SaveSession(session); err != nil {
			return nil, err
		}
		log.Printf("Session created for %s (business %d)", phone, businessID)
		return session, nil
	}
	if err != nil {
		return nil, err
	}

	session.State = models.NormalizeState(session.State)

	if session.IsStale(time.Now()) {
		session.Reset()
		session.LastActivity = time.Now()
		if err := sm.store.SaveSession(session); err != nil {
			return nil, err
		}
		log.Printf("Stale session reset for %s (business %d)", phone, businessID)
	}

	return session, nil
}

// Save touches LastActivity and persists the session.
func (sm *SessionManager) Save(session *models.ChatSession) error {
	session.LastActivity = time.Now()
	return sm.store.SaveSession(session)
}
