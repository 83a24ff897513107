package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskscope/internal/access"
	"github.com/yukikurage/taskscope/internal/database"
	"github.com/yukikurage/taskscope/internal/models"
	"github.com/yukikurage/taskscope/internal/notifications"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role, manager *uint64) *models.User {
	t.Helper()

	user := &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hashed",
		Role:         role,
		IsStaff:      role.IsStaff(),
		ManagerID:    manager,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func principal(u *models.User) access.Principal {
	return access.PrincipalOf(u)
}

// recordingSender captures outbound messages and can be told to fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []notifications.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg notifications.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) last() notifications.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

var errSMTPDown = errors.New("smtp: connection refused")

// stubThrottle admits the first call per key only.
type stubThrottle struct {
	seen map[string]bool
	wait time.Duration
}

func (s *stubThrottle) RetryAfter(_ context.Context, _ string) (time.Duration, error) {
	return s.wait, nil
}

func (s *stubThrottle) Allow(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}
