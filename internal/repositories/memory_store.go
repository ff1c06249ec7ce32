package repositories

import (
	"context"
	"sync"
	"time"

	"phoneverifier/internal/apperr"
	"phoneverifier/internal/models"
)

// MemoryStore is an in-process UserVerificationStore for local runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*models.UserVerification
	now   func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{users: make(map[string]*models.UserVerification), now: now}
}

// Put inserts or replaces a user record.
func (s *MemoryStore) Put(u models.UserVerification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.ID] = &cp
}

// Get returns a copy of the record for inspection.
func (s *MemoryStore) Get(id string) (models.UserVerification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.UserVerification{}, false
	}
	return *u, true
}

func (s *MemoryStore) GetCurrentUser(_ context.Context, acc models.Accountability) (*models.UserVerification, error) {
	if acc.UserID == "" {
		return nil, apperr.ErrUnauthorized
	}
	u, ok := s.Get(acc.UserID)
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) IsPhoneNumberTaken(_ context.Context, phone, excludeUserID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takenLocked(phone, excludeUserID), nil
}

func (s *MemoryStore) takenLocked(phone, excludeUserID string) bool {
	for id, u := range s.users {
		if id != excludeUserID && u.VerifiedPhone && u.Phone() == phone {
			return true
		}
	}
	return false
}

func (s *MemoryStore) UpdateUserVerification(_ context.Context, userID, phone, countryCode, otpHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apperr.ErrUserNotFound
	}
	if s.takenLocked(phone, userID) {
		return apperr.ErrPhoneInUse
	}
	now := s.now()
	u.PhoneNumber = &phone
	u.CountryCode = &countryCode
	u.OTPHash = &otpHash
	u.ExpiresAt = &expiresAt
	u.Attempts = 0
	u.VerifiedPhone = false
	u.CreatedAt = &now
	return nil
}

func (s *MemoryStore) RefreshPendingOTP(_ context.Context, userID, otpHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apperr.ErrUserNotFound
	}
	u.OTPHash = &otpHash
	u.ExpiresAt = &expiresAt
	u.Attempts = 0
	return nil
}

func (s *MemoryStore) ClearPendingOTP(_ context.Context, userID, otpHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.OTPHash == nil || *u.OTPHash != otpHash {
		return nil
	}
	u.OTPHash, u.ExpiresAt, u.Attempts = nil, nil, 0
	return nil
}

func (s *MemoryStore) VerifyUserPhone(_ context.Context, userID, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apperr.ErrUserNotFound
	}
	if s.takenLocked(phone, userID) {
		return apperr.ErrPhoneInUse
	}
	u.PhoneNumber = &phone
	u.VerifiedPhone = true
	u.OTPHash, u.ExpiresAt, u.Attempts = nil, nil, 0
	return nil
}

func (s *MemoryStore) IncrementAttempts(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, apperr.ErrUserNotFound
	}
	u.Attempts++
	return u.Attempts, nil
}

func (s *MemoryStore) ClearExpiredOTPs(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for _, u := range s.users {
		if u.ExpiresAt != nil && u.ExpiresAt.Before(now) {
			u.OTPHash, u.ExpiresAt, u.Attempts = nil, nil, 0
			n++
		}
	}
	return n, nil
}

// MemoryRequestLog is an in-process RequestLog.
type MemoryRequestLog struct {
	mu      sync.Mutex
	entries []models.VerificationRequest
}

func NewMemoryRequestLog() *MemoryRequestLog {
	return &MemoryRequestLog{}
}

func (l *MemoryRequestLog) Record(_ context.Context, req models.VerificationRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, req)
	return nil
}

func (l *MemoryRequestLog) CountSince(_ context.Context, userID, phone string, since time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.UserID == userID && e.PhoneNumber == phone && e.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (l *MemoryRequestLog) Prune(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.CreatedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	n := int64(len(l.entries) - len(kept))
	l.entries = kept
	return n, nil
}
