package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/apperrors"
	"github.com/kaladesignco/site-engine/pkg/logging"
	"github.com/kaladesignco/site-engine/pkg/models"
)

// Typed views over the generic engine for the two listed collections, plus
// the two operations that do not fit the uniform contract: single-work
// lookup and analytics logging.

// Works lists every portfolio project, newest first.
func (s *Store) Works(ctx context.Context) ([]models.WorkProject, error) {
	return ListAs[models.WorkProject](ctx, s, models.KindWorkProject)
}

// AddWork persists a new portfolio project.
func (s *Store) AddWork(ctx context.Context, work models.WorkProject) (models.WorkProject, error) {
	return CreateAs(ctx, s, models.KindWorkProject, work)
}

// UpdateWork merges partial fields into a project.
func (s *Store) UpdateWork(ctx context.Context, id int64, partial map[string]any) (models.WorkProject, error) {
	return UpdateAs[models.WorkProject](ctx, s, models.KindWorkProject, id, partial)
}

// DeleteWork removes a project, reporting whether one was removed.
func (s *Store) DeleteWork(ctx context.Context, id int64) (bool, error) {
	return s.Delete(ctx, models.KindWorkProject, id)
}

// Work resolves a single project by identifier, regardless of listings.
func (s *Store) Work(ctx context.Context, id int64) (models.WorkProject, error) {
	if err := s.await(ctx); err != nil {
		return models.WorkProject{}, err
	}

	if s.useRemote() {
		raw, err := s.remote.SelectSingle(ctx, models.KindWorkProject.Table(), "id", formatID(id))
		if err == nil {
			return fromRecordBytes[models.WorkProject](raw)
		}
		if isNotFound(err) {
			return models.WorkProject{}, apperrors.ErrNotFound
		}
		s.logger.Warn("work lookup degraded to cache",
			zap.Int64("id", id),
			zap.String("error", logging.SanitizeError(err)))
	}

	works, err := s.cacheList(cacheKeyWorks)
	if err != nil {
		return models.WorkProject{}, err
	}
	for _, record := range works {
		if rid, ok := recordID(record); ok && rid == id {
			return fromRecord[models.WorkProject](record)
		}
	}
	return models.WorkProject{}, apperrors.ErrNotFound
}

// Contacts lists every contact submission, newest first.
func (s *Store) Contacts(ctx context.Context) ([]models.ContactSubmission, error) {
	return ListAs[models.ContactSubmission](ctx, s, models.KindContactSubmission)
}

// AddContact persists a new contact submission.
func (s *Store) AddContact(ctx context.Context, submission models.ContactSubmission) (models.ContactSubmission, error) {
	return CreateAs(ctx, s, models.KindContactSubmission, submission)
}

// UpdateContactStatus moves a submission through its status lifecycle.
func (s *Store) UpdateContactStatus(ctx context.Context, id int64, status string) (models.ContactSubmission, error) {
	return UpdateAs[models.ContactSubmission](ctx, s, models.KindContactSubmission, id, map[string]any{
		"status": status,
	})
}

// DeleteContact removes a submission, reporting whether one was removed.
func (s *Store) DeleteContact(ctx context.Context, id int64) (bool, error) {
	return s.Delete(ctx, models.KindContactSubmission, id)
}

// LogEvent records an analytics beacon. Events are write-only from the
// core's perspective and strictly best-effort: in fallback mode they are
// skipped, and a failed remote write is logged, never surfaced.
func (s *Store) LogEvent(ctx context.Context, event models.AnalyticsEvent) error {
	if err := s.await(ctx); err != nil {
		return err
	}

	if !s.useRemote() {
		return nil
	}

	record, err := toRecord(event)
	if err != nil {
		return nil
	}
	delete(record, "created_at")

	if _, err := s.remote.Insert(ctx, models.KindAnalyticsEvent.Table(), record); err != nil {
		s.logger.Debug("analytics event dropped",
			zap.String("event", event.EventName),
			zap.String("error", logging.SanitizeError(err)))
	}
	return nil
}
