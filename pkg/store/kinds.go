package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/cache"
	"github.com/kaladesignco/site-engine/pkg/models"
)

// kindHooks is the per-kind policy table: where the fallback cache keeps the
// collection and how records are normalized before persisting. One table
// instead of six near-duplicate method families.
type kindHooks struct {
	cacheKey  string
	normalize func(map[string]any)
}

const (
	cacheKeyContacts = cache.KeyContactForms
	cacheKeyWorks    = cache.KeyWorks
)

var kindTable = map[models.Kind]kindHooks{
	models.KindContactSubmission: {
		cacheKey:  cacheKeyContacts,
		normalize: normalizeContact,
	},
	models.KindWorkProject: {
		cacheKey: cacheKeyWorks,
	},
}

// formatID renders an identifier for URL filters.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func hooksFor(kind models.Kind) (kindHooks, error) {
	hooks, ok := kindTable[kind]
	if !ok {
		return kindHooks{}, fmt.Errorf("kind %q has no list operations", kind)
	}
	return hooks, nil
}

// normalizeContact applies the contact submission policy rules: new
// submissions start in the "new" status and a source address that is not a
// syntactically valid IPv4 or IPv6 literal is stored as absent. That is a
// normalization, not an error.
func normalizeContact(record map[string]any) {
	if _, ok := record["status"]; !ok {
		record["status"] = models.ContactStatusNew
	}
	if raw, ok := record["ip_address"]; ok {
		ip, _ := raw.(string)
		if net.ParseIP(ip) == nil {
			delete(record, "ip_address")
		}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// decodeRecords parses a JSON array into generic records, preserving
// numeric identifiers exactly.
func decodeRecords(raw []byte) ([]map[string]any, error) {
	if len(raw) == 0 {
		return []map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if records == nil {
		records = []map[string]any{}
	}
	return records, nil
}

// decodeRecord parses a single JSON object into a generic record.
func decodeRecord(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return record, nil
}

// recordID extracts the numeric identifier from a generic record.
func recordID(record map[string]any) (int64, bool) {
	switch v := record["id"].(type) {
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

// toRecord converts a typed entity into the engine's generic representation.
func toRecord(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return decodeRecord(raw)
}

// fromRecordBytes parses a raw JSON object straight into a typed entity.
func fromRecordBytes[T any](raw []byte) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return out, nil
}

// fromRecord converts a generic record back into a typed entity.
func fromRecord[T any](record map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(record)
	if err != nil {
		return out, fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return out, nil
}

// ListAs is the typed view over Store.List.
func ListAs[T any](ctx context.Context, s *Store, kind models.Kind) ([]T, error) {
	records, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		entity, err := fromRecord[T](record)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// CreateAs is the typed view over Store.Create.
func CreateAs[T any](ctx context.Context, s *Store, kind models.Kind, entity T) (T, error) {
	var zero T
	record, err := toRecord(entity)
	if err != nil {
		return zero, err
	}
	// Server-assigned fields never travel with the request.
	delete(record, "id")
	delete(record, "created_at")

	stored, err := s.Create(ctx, kind, record)
	if err != nil {
		return zero, err
	}
	return fromRecord[T](stored)
}

// UpdateAs is the typed view over Store.Update.
func UpdateAs[T any](ctx context.Context, s *Store, kind models.Kind, id int64, partial map[string]any) (T, error) {
	var zero T
	stored, err := s.Update(ctx, kind, id, partial)
	if err != nil {
		return zero, err
	}
	return fromRecord[T](stored)
}

// timestamp formats the current instant the way the remote store does.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
