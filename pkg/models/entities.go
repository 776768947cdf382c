package models

import "time"

// Kind identifies one of the six entity collections. The value is the
// collection's table name in the remote store.
type Kind string

const (
	KindContactSubmission Kind = "contact_forms"
	KindWorkProject       Kind = "works"
	KindSiteSettings      Kind = "site_settings"
	KindSEOSettings       Kind = "seo_settings"
	KindPageContent       Kind = "page_content"
	KindAnalyticsEvent    Kind = "analytics_events"
)

// Table returns the remote store table name for the kind.
func (k Kind) Table() string { return string(k) }

// IsSingleton reports whether the kind has exactly one logical instance.
func (k Kind) IsSingleton() bool {
	return k == KindSiteSettings || k == KindSEOSettings
}

// Contact submission status values.
const (
	ContactStatusNew      = "new"
	ContactStatusRead     = "read"
	ContactStatusArchived = "archived"
)

// ContactSubmission is a message submitted through the public contact form.
type ContactSubmission struct {
	ID        int64      `json:"id,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Service   string     `json:"service,omitempty"`
	Message   string     `json:"message"`
	IPAddress string     `json:"ip_address,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// WorkProject is one portfolio project.
type WorkProject struct {
	ID          int64      `json:"id,omitempty"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Year        string     `json:"year,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	Featured    bool       `json:"featured"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// SiteSettings is the singleton contact/social record.
type SiteSettings struct {
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	FacebookURL  string `json:"facebook_url"`
	InstagramURL string `json:"instagram_url"`
	LinkedInURL  string `json:"linkedin_url"`
	TwitterURL   string `json:"twitter_url"`
}

// SEOSettings is the singleton SEO/tracking record.
type SEOSettings struct {
	SiteTitle           string `json:"site_title"`
	Tagline             string `json:"tagline"`
	MetaDescription     string `json:"meta_description"`
	MetaKeywords        string `json:"meta_keywords"`
	GoogleAnalyticsID   string `json:"google_analytics_id"`
	GoogleSearchConsole string `json:"google_search_console"`
	FacebookPixelID     string `json:"facebook_pixel_id"`
}

// PageContent is the editable content for one logical page, keyed by the
// page identifier (e.g. "index.html").
type PageContent struct {
	PageName        string `json:"page_name,omitempty"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	HeroText        string `json:"hero_text,omitempty"`
	MainContent     string `json:"main_content,omitempty"`
	MetaTitle       string `json:"meta_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`
	MetaKeywords    string `json:"meta_keywords,omitempty"`
}

// IsZero reports whether the record carries no content.
func (p PageContent) IsZero() bool {
	return p == PageContent{} || p == PageContent{PageName: p.PageName}
}

// AnalyticsEvent is a tracking beacon. The core only ever writes these.
type AnalyticsEvent struct {
	EventName     string    `json:"event_name"`
	EventCategory string    `json:"event_category,omitempty"`
	EventLabel    string    `json:"event_label,omitempty"`
	EventValue    int       `json:"event_value,omitempty"`
	PageURL       string    `json:"page_url,omitempty"`
	PageTitle     string    `json:"page_title,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	Referrer      string    `json:"referrer,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// User is the authenticated administrator identity.
type User struct {
	Email string `json:"email"`
}
