package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphmind-ai/graphmind/pkg/session"
	"github.com/graphmind-ai/graphmind/pkg/store"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	kv, err := store.NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return session.NewStore(kv, nil)
}

func TestGetOrCreateRoundTrip(t *testing.T) {
	s := newSessionStore(t)

	created, err := s.GetOrCreate("s1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "s1", created.ID)
	assert.Equal(t, "g1", created.GraphID)
	assert.Empty(t, created.Messages)

	// Second call returns the existing session, not a fresh one.
	again, err := s.GetOrCreate("s1", "other-graph")
	require.NoError(t, err)
	assert.Equal(t, "g1", again.GraphID)
}

func TestGetMissingSession(t *testing.T) {
	s := newSessionStore(t)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestAppendPersistsMessages(t *testing.T) {
	s := newSessionStore(t)

	_, err := s.GetOrCreate("s1", "g1")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, s.Append("s1",
		types.ChatMessage{Role: "user", Content: "hi", Timestamp: now},
		types.ChatMessage{Role: "assistant", Content: "hello", Timestamp: now},
	))

	sess, err := s.Get("s1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "user", sess.Messages[0].Role)
	assert.Equal(t, "hello", sess.Messages[1].Content)
}

func TestListFiltersByGraph(t *testing.T) {
	s := newSessionStore(t)

	_, err := s.GetOrCreate("s1", "g1")
	require.NoError(t, err)
	_, err = s.GetOrCreate("s2", "g1")
	require.NoError(t, err)
	_, err = s.GetOrCreate("s3", "g2")
	require.NoError(t, err)

	all, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	g1Only, err := s.List("g1")
	require.NoError(t, err)
	assert.Len(t, g1Only, 2)
}

func TestClearKeepsSession(t *testing.T) {
	s := newSessionStore(t)

	_, err := s.GetOrCreate("s1", "g1")
	require.NoError(t, err)
	require.NoError(t, s.Append("s1", types.ChatMessage{Role: "user", Content: "hi"}))

	require.NoError(t, s.Clear("s1"))

	sess, err := s.Get("s1")
	require.NoError(t, err)
	assert.Empty(t, sess.Messages)
}

func TestDeleteRemovesSession(t *testing.T) {
	s := newSessionStore(t)

	_, err := s.GetOrCreate("s1", "g1")
	require.NoError(t, err)
	require.NoError(t, s.Delete("s1"))

	_, err = s.Get("s1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	assert.ErrorIs(t, s.Delete("s1"), session.ErrSessionNotFound)
}

func TestDeleteByGraph(t *testing.T) {
	s := newSessionStore(t)

	_, err := s.GetOrCreate("s1", "g1")
	require.NoError(t, err)
	_, err = s.GetOrCreate("s2", "g2")
	require.NoError(t, err)

	require.NoError(t, s.DeleteByGraph("g1"))

	_, err = s.Get("s1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = s.Get("s2")
	assert.NoError(t, err)
}

func TestExportCarriesSummary(t *testing.T) {
	s := newSessionStore(t)

	_, err := s.GetOrCreate("s1", "g1")
	require.NoError(t, err)
	require.NoError(t, s.Append("s1", types.ChatMessage{Role: "user", Content: "hi"}))

	transcript, err := s.Export("s1", "a short summary")
	require.NoError(t, err)
	assert.Equal(t, "s1", transcript.SessionID)
	assert.Equal(t, "g1", transcript.GraphID)
	assert.Len(t, transcript.Messages, 1)
	assert.Equal(t, "a short summary", transcript.Summary)
}
