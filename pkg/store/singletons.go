package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/kaladesignco/site-engine/pkg/logging"
	"github.com/kaladesignco/site-engine/pkg/models"
)

// Singleton tables keep their one logical row under a fixed identifier.
const singletonRowID = 1

// SiteSettings returns the singleton contact/social record. Reads never
// report absence: before the first write, and whenever the backing store
// cannot answer, the hard-coded defaults are returned.
func (s *Store) SiteSettings(ctx context.Context) (models.SiteSettings, error) {
	if err := s.await(ctx); err != nil {
		return models.SiteSettings{}, err
	}

	if s.useRemote() {
		raw, err := s.remote.SelectSingle(ctx, models.KindSiteSettings.Table(), "", "")
		if err == nil {
			settings, perr := fromRecordBytes[models.SiteSettings](raw)
			if perr == nil {
				return settings, nil
			}
			err = perr
		}
		s.logger.Debug("site settings read degraded to defaults",
			zap.String("error", logging.SanitizeError(err)))
		return models.DefaultSiteSettings(), nil
	}

	data, err := s.siteData()
	if err != nil || data.Settings == nil {
		return models.DefaultSiteSettings(), nil
	}
	return *data.Settings, nil
}

// UpdateSiteSettings writes the singleton, creating it if absent.
func (s *Store) UpdateSiteSettings(ctx context.Context, settings models.SiteSettings) (models.SiteSettings, error) {
	if err := s.await(ctx); err != nil {
		return models.SiteSettings{}, err
	}

	if s.useRemote() {
		record, err := toRecord(settings)
		if err != nil {
			return models.SiteSettings{}, err
		}
		record["id"] = singletonRowID
		record["updated_at"] = timestamp()

		raw, err := s.remote.Upsert(ctx, models.KindSiteSettings.Table(), record)
		if err == nil {
			return fromRecordBytes[models.SiteSettings](raw)
		}
		s.enterFallback("upsert site_settings", err)
	}

	data, err := s.siteData()
	if err != nil {
		return models.SiteSettings{}, err
	}
	data.Settings = &settings
	if err := s.putSiteData(data); err != nil {
		return models.SiteSettings{}, err
	}
	return settings, nil
}

// SEOSettings returns the singleton SEO record, defaulting like SiteSettings.
func (s *Store) SEOSettings(ctx context.Context) (models.SEOSettings, error) {
	if err := s.await(ctx); err != nil {
		return models.SEOSettings{}, err
	}

	if s.useRemote() {
		raw, err := s.remote.SelectSingle(ctx, models.KindSEOSettings.Table(), "", "")
		if err == nil {
			settings, perr := fromRecordBytes[models.SEOSettings](raw)
			if perr == nil {
				return settings, nil
			}
			err = perr
		}
		s.logger.Debug("seo settings read degraded to defaults",
			zap.String("error", logging.SanitizeError(err)))
		return models.DefaultSEOSettings(), nil
	}

	data, err := s.siteData()
	if err != nil || data.SEO == nil {
		return models.DefaultSEOSettings(), nil
	}
	return *data.SEO, nil
}

// UpdateSEOSettings writes the singleton, creating it if absent.
func (s *Store) UpdateSEOSettings(ctx context.Context, settings models.SEOSettings) (models.SEOSettings, error) {
	if err := s.await(ctx); err != nil {
		return models.SEOSettings{}, err
	}

	if s.useRemote() {
		record, err := toRecord(settings)
		if err != nil {
			return models.SEOSettings{}, err
		}
		record["id"] = singletonRowID
		record["updated_at"] = timestamp()

		raw, err := s.remote.Upsert(ctx, models.KindSEOSettings.Table(), record)
		if err == nil {
			return fromRecordBytes[models.SEOSettings](raw)
		}
		s.enterFallback("upsert seo_settings", err)
	}

	data, err := s.siteData()
	if err != nil {
		return models.SEOSettings{}, err
	}
	data.SEO = &settings
	if err := s.putSiteData(data); err != nil {
		return models.SEOSettings{}, err
	}
	return settings, nil
}

// PageContent returns the content record for a page identifier. Unknown
// pages are legal: the empty record is returned on a miss.
func (s *Store) PageContent(ctx context.Context, page string) (models.PageContent, error) {
	if err := s.await(ctx); err != nil {
		return models.PageContent{}, err
	}

	if s.useRemote() {
		raw, err := s.remote.SelectSingle(ctx, models.KindPageContent.Table(), "page_name", page)
		if err == nil {
			content, perr := fromRecordBytes[models.PageContent](raw)
			if perr == nil {
				return content, nil
			}
			err = perr
		}
		if !isNotFound(err) {
			s.logger.Debug("page content read degraded to empty",
				zap.String("page", page),
				zap.String("error", logging.SanitizeError(err)))
		}
		return models.PageContent{}, nil
	}

	data, err := s.siteData()
	if err != nil {
		return models.PageContent{}, nil
	}
	return data.Pages[page], nil
}

// UpdatePageContent writes the content record for a page identifier,
// creating it if absent.
func (s *Store) UpdatePageContent(ctx context.Context, page string, content models.PageContent) (models.PageContent, error) {
	if err := s.await(ctx); err != nil {
		return models.PageContent{}, err
	}

	content.PageName = page

	if s.useRemote() {
		record, err := toRecord(content)
		if err != nil {
			return models.PageContent{}, err
		}
		record["updated_at"] = timestamp()

		raw, err := s.remote.Upsert(ctx, models.KindPageContent.Table(), record)
		if err == nil {
			return fromRecordBytes[models.PageContent](raw)
		}
		s.enterFallback("upsert page_content", err)
	}

	data, err := s.siteData()
	if err != nil {
		return models.PageContent{}, err
	}
	if data.Pages == nil {
		data.Pages = make(map[string]models.PageContent)
	}
	data.Pages[page] = content
	if err := s.putSiteData(data); err != nil {
		return models.PageContent{}, err
	}
	return content, nil
}
