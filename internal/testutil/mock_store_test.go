package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/radutopala/threads/internal/db"
)

var _ db.Store = (*MockStore)(nil)

type MockStoreSuite struct {
	suite.Suite
	store *MockStore
	ctx   context.Context
}

func TestMockStoreSuite(t *testing.T) {
	suite.Run(t, new(MockStoreSuite))
}

func (s *MockStoreSuite) SetupTest() {
	s.store = new(MockStore)
	s.ctx = context.Background()
}

func (s *MockStoreSuite) TestEnsureSubjectThread() {
	t := &db.Thread{ID: 4, Title: "x"}
	s.store.On("EnsureSubjectThread", s.ctx, "a", "x").Return(t, true, nil)
	got, created, err := s.store.EnsureSubjectThread(s.ctx, "a", "x")
	require.NoError(s.T(), err)
	require.True(s.T(), created)
	require.Equal(s.T(), t, got)
	s.store.AssertExpectations(s.T())
}

func (s *MockStoreSuite) TestEnsureSubjectThreadNil() {
	s.store.On("EnsureSubjectThread", s.ctx, "a", "").Return(nil, false, errors.New("boom"))
	got, created, err := s.store.EnsureSubjectThread(s.ctx, "a", "")
	require.Error(s.T(), err)
	require.False(s.T(), created)
	require.Nil(s.T(), got)
}

func (s *MockStoreSuite) TestGetThread() {
	t := &db.Thread{ID: 4}
	s.store.On("GetThread", s.ctx, int64(4)).Return(t, nil)
	got, err := s.store.GetThread(s.ctx, 4)
	require.NoError(s.T(), err)
	require.Equal(s.T(), t, got)
}

func (s *MockStoreSuite) TestGetThreadNil() {
	s.store.On("GetThread", s.ctx, int64(4)).Return(nil, nil)
	got, err := s.store.GetThread(s.ctx, 4)
	require.NoError(s.T(), err)
	require.Nil(s.T(), got)
}

func (s *MockStoreSuite) TestGetPostNil() {
	s.store.On("GetPost", s.ctx, int64(9)).Return(nil, errors.New("boom"))
	got, err := s.store.GetPost(s.ctx, 9)
	require.Error(s.T(), err)
	require.Nil(s.T(), got)
}

func (s *MockStoreSuite) TestListPosts() {
	posts := []*db.Post{{ID: 1}}
	s.store.On("ListPosts", s.ctx, int64(4)).Return(posts, nil)
	got, err := s.store.ListPosts(s.ctx, 4)
	require.NoError(s.T(), err)
	require.Equal(s.T(), posts, got)
}

func (s *MockStoreSuite) TestSubjects() {
	s.store.On("GetSubject", s.ctx, "a").Return(&db.Subject{Key: "a", ThreadID: 4}, nil)
	s.store.On("DeleteSubjectThread", s.ctx, "a", int64(4)).Return(int64(2), nil)

	sub, err := s.store.GetSubject(s.ctx, "a")
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(4), sub.ThreadID)
	n, err := s.store.DeleteSubjectThread(s.ctx, "a", 4)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(2), n)
	s.store.AssertExpectations(s.T())
}

func (s *MockStoreSuite) TestPurgeDeleted() {
	cutoff := time.Unix(0, 0)
	s.store.On("PurgeDeleted", s.ctx, cutoff).Return(db.PurgeResult{Posts: 2, Threads: 1}, nil)
	res, err := s.store.PurgeDeleted(s.ctx, cutoff)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(2), res.Posts)
}

func (s *MockStoreSuite) TestClose() {
	s.store.On("Close").Return(nil)
	require.NoError(s.T(), s.store.Close())
}
