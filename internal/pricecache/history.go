package pricecache

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// History returns the search history, most recent first. A storage
// failure degrades to an empty list.
func (s *Store) History(ctx context.Context) []string {
	raw, found, err := s.kv.Get(ctx, historyKey)
	if err != nil {
		s.logger.Warn("history read failed", zap.Error(err))
		return []string{}
	}
	if !found {
		return []string{}
	}

	var history []string
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		s.logger.Warn("history corrupt", zap.Error(err))
		return []string{}
	}
	return history
}

// AddHistory pushes query to the front of the search history. A query
// already present is moved to the front rather than duplicated, and the
// list is truncated to the 20 most recent.
func (s *Store) AddHistory(ctx context.Context, query string) error {
	history := s.History(ctx)

	updated := make([]string, 0, len(history)+1)
	updated = append(updated, query)
	for _, q := range history {
		if q != query {
			updated = append(updated, q)
		}
	}
	if len(updated) > maxHistory {
		updated = updated[:maxHistory]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := s.kv.Set(ctx, historyKey, string(data)); err != nil {
		s.logger.Warn("history write failed", zap.Error(err))
		return fmt.Errorf("history write: %w", err)
	}
	return nil
}
