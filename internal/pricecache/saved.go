package pricecache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omnisell/pricewatch/internal/model"
)

// SavedQueries returns the user's saved queries. A storage failure
// degrades to an empty list.
func (s *Store) SavedQueries(ctx context.Context) []model.SavedQuery {
	raw, found, err := s.kv.Get(ctx, savedKey)
	if err != nil {
		s.logger.Warn("saved queries read failed", zap.Error(err))
		return []model.SavedQuery{}
	}
	if !found {
		return []model.SavedQuery{}
	}

	var saved []model.SavedQuery
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		s.logger.Warn("saved queries corrupt", zap.Error(err))
		return []model.SavedQuery{}
	}
	return saved
}

// SaveQuery appends a new saved query with a zero use count. Saving is an
// explicit user action; queries are never saved automatically from the
// cache.
func (s *Store) SaveQuery(ctx context.Context, query, name string) (model.SavedQuery, error) {
	now := s.now()
	sq := model.SavedQuery{
		ID:        uuid.NewString(),
		Query:     query,
		Name:      name,
		CreatedAt: now,
		LastUsed:  now,
		UseCount:  0,
	}

	saved := append(s.SavedQueries(ctx), sq)
	if err := s.persistSaved(ctx, saved); err != nil {
		return model.SavedQuery{}, err
	}
	return sq, nil
}

// MarkUsed increments the use count and refreshes the last-used time of
// the saved query with the given id. An unknown id is a silent no-op, not
// an error; the list is persisted either way.
func (s *Store) MarkUsed(ctx context.Context, id string) error {
	saved := s.SavedQueries(ctx)
	for i := range saved {
		if saved[i].ID == id {
			saved[i].UseCount++
			saved[i].LastUsed = s.now()
			break
		}
	}
	return s.persistSaved(ctx, saved)
}

func (s *Store) persistSaved(ctx context.Context, saved []model.SavedQuery) error {
	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("marshal saved queries: %w", err)
	}
	if err := s.kv.Set(ctx, savedKey, string(data)); err != nil {
		s.logger.Warn("saved queries write failed", zap.Error(err))
		return fmt.Errorf("saved queries write: %w", err)
	}
	return nil
}
