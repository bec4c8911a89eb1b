package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-dashboard/internal/service"
)

func newConversation() *service.Conversation {
	return service.NewConversation(service.NewOrchestrator(nil, 0), "ctx")
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(0, 0)
	ds := &service.Dataset{PromptContext: "ctx"}
	conv := newConversation()

	sess := s.Create(ds, conv)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get(sess.ID.String())
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Same(t, ds, got.Dataset)

	assert.True(t, s.Delete(sess.ID.String()))
	assert.Equal(t, service.PhaseDone, conv.Phase())
	assert.False(t, s.Delete(sess.ID.String()))

	_, ok = s.Get(sess.ID.String())
	assert.False(t, ok)
}

func TestStoreRejectsMalformedIDs(t *testing.T) {
	s := NewStore(0, 0)
	_, ok := s.Get("not-a-uuid")
	assert.False(t, ok)
	assert.False(t, s.Delete(""))
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Hour, 0)
	s.now = func() time.Time { return now }

	old := s.Create(&service.Dataset{}, newConversation())
	kept := s.Create(&service.Dataset{}, newConversation())

	now = now.Add(50 * time.Minute)
	_, ok := s.Get(kept.ID.String())
	require.True(t, ok)

	now = now.Add(20 * time.Minute)
	_, ok = s.Get(old.ID.String())
	assert.False(t, ok, "idle for 70 minutes")
	assert.Equal(t, service.PhaseDone, old.Conversation.Phase())

	fresh := s.Create(&service.Dataset{}, newConversation())
	assert.Equal(t, 2, s.Len())

	now = now.Add(2 * time.Hour)
	s.Create(&service.Dataset{}, newConversation())
	assert.Equal(t, 1, s.Len())
	_, ok = s.Get(fresh.ID.String())
	assert.False(t, ok)
}

func TestStoreEvictsLeastRecentlySeen(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(0, 2)
	s.now = func() time.Time { return now }

	first := s.Create(&service.Dataset{}, newConversation())
	now = now.Add(time.Minute)
	second := s.Create(&service.Dataset{}, newConversation())

	now = now.Add(time.Minute)
	_, ok := s.Get(first.ID.String())
	require.True(t, ok)

	now = now.Add(time.Minute)
	third := s.Create(&service.Dataset{}, newConversation())
	assert.Equal(t, 2, s.Len())

	_, ok = s.Get(second.ID.String())
	assert.False(t, ok, "second was idle the longest")
	assert.Equal(t, service.PhaseDone, second.Conversation.Phase())

	for _, sess := range []*Session{first, third} {
		_, ok := s.Get(sess.ID.String())
		assert.True(t, ok)
	}
}
