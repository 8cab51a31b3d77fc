package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/logger"
)

// Storage keys. The whole client state is exactly these two entries.
const (
	keyActiveAdvisor = "active_advisor"
	keyChatHistory   = "chat_history"
)

// ConversationStore persists the active advisor and the per-advisor message
// history in a local SQLite file. Writes are refused until the first Load has
// completed, so a fresh process can never clobber persisted state with its
// empty initial maps. The history entry is a single value holding every
// advisor's transcript, so its read-merge-write runs under mu; concurrent
// saves for different advisors must not lose each other's update.
type ConversationStore struct {
	db *sql.DB

	mu     sync.Mutex
	loaded bool
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Load reads both entries. Each key degrades independently to its empty
// default when missing or corrupt; corruption never fails the load.
func (s *ConversationStore) Load(ctx context.Context) (string, map[string][]domain.Message, error) {
	activeAdvisor := ""
	if raw, err := s.get(ctx, keyActiveAdvisor); err == nil {
		if err := json.Unmarshal(raw, &activeAdvisor); err != nil {
			slog.WarnContext(ctx, "Discarding corrupt active advisor entry", logger.Err(err))
			activeAdvisor = ""
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", nil, fmt.Errorf("reading active advisor: %w", err)
	}

	history := map[string][]domain.Message{}
	if raw, err := s.get(ctx, keyChatHistory); err == nil {
		if err := json.Unmarshal(raw, &history); err != nil {
			slog.WarnContext(ctx, "Discarding corrupt chat history entry", logger.Err(err))
			history = map[string][]domain.Message{}
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", nil, fmt.Errorf("reading chat history: %w", err)
	}

	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()

	return activeAdvisor, history, nil
}

// SaveActiveAdvisor records the advisor the user last had open.
func (s *ConversationStore) SaveActiveAdvisor(ctx context.Context, advisorID string) error {
	if !s.isLoaded() {
		slog.DebugContext(ctx, "Skipping save before initial load", "key", keyActiveAdvisor)
		return nil
	}
	data, err := json.Marshal(advisorID)
	if err != nil {
		return fmt.Errorf("encoding active advisor: %w", err)
	}
	return s.put(ctx, keyActiveAdvisor, data)
}

// SaveHistory replaces one advisor's message list inside the history entry.
func (s *ConversationStore) SaveHistory(ctx context.Context, advisorID string, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		slog.DebugContext(ctx, "Skipping save before initial load", "key", keyChatHistory)
		return nil
	}

	history := map[string][]domain.Message{}
	if raw, err := s.get(ctx, keyChatHistory); err == nil {
		if err := json.Unmarshal(raw, &history); err != nil {
			history = map[string][]domain.Message{}
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("reading chat history: %w", err)
	}

	history[advisorID] = messages

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding chat history: %w", err)
	}
	return s.put(ctx, keyChatHistory, data)
}

func (s *ConversationStore) isLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *ConversationStore) get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM app_state WHERE key = ?`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching %q: %w", key, err)
	}
	return value, nil
}

func (s *ConversationStore) put(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("saving %q: %w", key, err)
	}
	return nil
}
