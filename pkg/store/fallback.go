package store

import (
	"encoding/json"
	"fmt"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/cache"
	"github.com/kaladesignco/site-engine/pkg/models"
)

// Cache legs of the two-stage dispatch. Lists are stored as one JSON array
// per collection; writes prepend, so insertion order is also
// most-recent-first. A cache failure here is terminal for the operation.

func (s *Store) cacheList(key string) ([]map[string]any, error) {
	raw, ok, err := s.cache.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	if !ok {
		return []map[string]any{}, nil
	}
	return decodeRecords(raw)
}

func (s *Store) cacheCreate(key string, record map[string]any) (map[string]any, error) {
	records, err := s.cacheList(key)
	if err != nil {
		return nil, err
	}

	id, err := s.cache.NextID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	record["id"] = id
	record["created_at"] = timestamp()

	records = append([]map[string]any{record}, records...)
	if err := s.putCacheList(key, records); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Store) cacheUpdate(key string, id int64, partial map[string]any) (map[string]any, error) {
	records, err := s.cacheList(key)
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		rid, ok := recordID(record)
		if !ok || rid != id {
			continue
		}
		for k, v := range partial {
			record[k] = v
		}
		if err := s.putCacheList(key, records); err != nil {
			return nil, err
		}
		return record, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *Store) cacheDelete(key string, id int64) (bool, error) {
	records, err := s.cacheList(key)
	if err != nil {
		return false, err
	}

	kept := records[:0]
	removed := false
	for _, record := range records {
		if rid, ok := recordID(record); ok && rid == id {
			removed = true
			continue
		}
		kept = append(kept, record)
	}
	if !removed {
		return false, nil
	}
	return true, s.putCacheList(key, kept)
}

func (s *Store) putCacheList(key string, records []map[string]any) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}
	if err := s.cache.Put(key, raw); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	return nil
}

// siteData reads the legacy combined blob holding the settings, SEO, and
// per-page sub-trees.
func (s *Store) siteData() (models.SiteData, error) {
	var data models.SiteData
	raw, ok, err := s.cache.Get(cache.KeySiteData)
	if err != nil {
		return data, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	if !ok {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.SiteData{}, fmt.Errorf("failed to parse site data: %w", err)
	}
	return data, nil
}

func (s *Store) putSiteData(data models.SiteData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal site data: %w", err)
	}
	if err := s.cache.Put(cache.KeySiteData, raw); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	return nil
}
