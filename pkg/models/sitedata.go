package models

// SiteData is the legacy combined blob the fallback cache keeps under a
// single key: the settings, SEO, and per-page sub-trees together. The
// remote store keeps these in separate tables; the cache format predates
// that split and is preserved as-is.
type SiteData struct {
	Settings *SiteSettings          `json:"settings,omitempty"`
	SEO      *SEOSettings           `json:"seo,omitempty"`
	Pages    map[string]PageContent `json:"pages,omitempty"`
}
