// Package session persists chat sessions scoped to graph instances.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphmind-ai/graphmind/pkg/store"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// ErrSessionNotFound is returned when a session does not exist.
var ErrSessionNotFound = errors.New("session not found")

const sessionKeyPrefix = "session/"

// Store persists chat sessions in a key-value store.
type Store struct {
	kv     store.KV
	logger *slog.Logger
}

// NewStore creates a session store backed by kv.
func NewStore(kv store.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// GetOrCreate returns the session with sessionID, creating it bound to
// graphID when it does not exist yet.
func (s *Store) GetOrCreate(sessionID, graphID string) (*types.ChatSession, error) {
	sess, err := s.Get(sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	sess = &types.ChatSession{
		ID:        sessionID,
		GraphID:   graphID,
		Messages:  []types.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(sess); err != nil {
		return nil, err
	}

	s.logger.Info("created chat session", "session_id", sessionID, "graph_id", graphID)
	return sess, nil
}

// Get returns the session with sessionID.
func (s *Store) Get(sessionID string) (*types.ChatSession, error) {
	data, err := s.kv.Get(sessionKeyPrefix + sessionID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}

	var sess types.ChatSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// Append adds messages to the session and persists it.
func (s *Store) Append(sessionID string, messages ...types.ChatMessage) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	sess.Messages = append(sess.Messages, messages...)
	sess.UpdatedAt = time.Now().UTC()
	return s.put(sess)
}

// List returns all sessions, optionally filtered by graph.
func (s *Store) List(graphID string) ([]*types.ChatSession, error) {
	values, err := s.kv.List(sessionKeyPrefix)
	if err != nil {
		return nil, err
	}

	sessions := make([]*types.ChatSession, 0, len(values))
	for _, data := range values {
		var sess types.ChatSession
		if err := json.Unmarshal(data, &sess); err != nil {
			s.logger.Warn("skipping undecodable session record", "error", err)
			continue
		}
		if graphID != "" && sess.GraphID != graphID {
			continue
		}
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

// Clear removes all messages from the session but keeps the session.
func (s *Store) Clear(sessionID string) error {
	sess, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	sess.Messages = []types.ChatMessage{}
	sess.UpdatedAt = time.Now().UTC()
	return s.put(sess)
}

// Delete removes the session entirely. Deleting a missing session fails
// with ErrSessionNotFound.
func (s *Store) Delete(sessionID string) error {
	if _, err := s.Get(sessionID); err != nil {
		return err
	}
	return s.kv.Delete(sessionKeyPrefix + sessionID)
}

// DeleteByGraph removes all sessions bound to graphID. Used when a graph
// instance is dropped.
func (s *Store) DeleteByGraph(graphID string) error {
	sessions, err := s.List(graphID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if err := s.kv.Delete(sessionKeyPrefix + sess.ID); err != nil {
			return fmt.Errorf("delete session %s: %w", sess.ID, err)
		}
	}
	return nil
}

// Export returns the session as a transcript. summary is attached as-is;
// callers generate it.
func (s *Store) Export(sessionID, summary string) (*types.SessionTranscript, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	return &types.SessionTranscript{
		SessionID: sess.ID,
		GraphID:   sess.GraphID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Messages:  sess.Messages,
		Summary:   summary,
	}, nil
}

func (s *Store) put(sess *types.ChatSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	return s.kv.Set(sessionKeyPrefix+sess.ID, data)
}
