package models

// DefaultSiteSettings returns the record served when the singleton has never
// been written or the backing store cannot answer. Reads of singletons never
// report absence.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		Phone:        "+91 98765 43210",
		Email:        "info@kaladesignco.com",
		Address:      "Design District, New Delhi, India",
		FacebookURL:  "https://facebook.com/kaladesignco",
		InstagramURL: "https://instagram.com/kaladesignco",
		LinkedInURL:  "https://linkedin.com/company/kaladesignco",
		TwitterURL:   "",
	}
}

// DefaultSEOSettings is the SEO counterpart of DefaultSiteSettings.
func DefaultSEOSettings() SEOSettings {
	return SEOSettings{
		SiteTitle:       "Kala Design Co - Interior Design Excellence",
		Tagline:         "Transforming Spaces, Creating Dreams",
		MetaDescription: "Professional interior design services in Delhi.",
		MetaKeywords:    "interior design, home design, office design, delhi",
	}
}
