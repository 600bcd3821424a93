package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/radutopala/threads/internal/db"
)

// MockStore implements the db.Store interface for testing.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetThread(ctx context.Context, id int64) (*db.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Thread), args.Error(1)
}

func (m *MockStore) EnsureSubjectThread(ctx context.Context, subject, title string) (*db.Thread, bool, error) {
	args := m.Called(ctx, subject, title)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*db.Thread), args.Bool(1), args.Error(2)
}

func (m *MockStore) DeleteSubjectThread(ctx context.Context, subject string, threadID int64) (int64, error) {
	args := m.Called(ctx, subject, threadID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) CreatePost(ctx context.Context, p *db.Post) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockStore) GetPost(ctx context.Context, id int64) (*db.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Post), args.Error(1)
}

func (m *MockStore) ListPosts(ctx context.Context, threadID int64) ([]*db.Post, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*db.Post), args.Error(1)
}

func (m *MockStore) SoftDeletePost(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) GetSubject(ctx context.Context, key string) (*db.Subject, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Subject), args.Error(1)
}

func (m *MockStore) PurgeDeleted(ctx context.Context, before time.Time) (db.PurgeResult, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(db.PurgeResult), args.Error(1)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}
