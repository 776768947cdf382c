package models

import "encoding/json"

// Sync envelope types. Each names the entity state a receiving context
// should re-apply.
const (
	SyncSiteSettings = "site_settings"
	SyncSEOSettings  = "seo_settings"
	SyncPageContent  = "page_content"
)

// SyncEnvelope is the payload carried on both sync channels. Origin
// identifies the publishing context so the cross-context channel can skip
// delivery back to the writer. Page is set only for page_content envelopes.
type SyncEnvelope struct {
	Type   string          `json:"type"`
	Page   string          `json:"page,omitempty"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// NewSyncEnvelope marshals data into an envelope of the given type.
func NewSyncEnvelope(envType, page, origin string, data any) (SyncEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return SyncEnvelope{}, err
	}
	return SyncEnvelope{Type: envType, Page: page, Origin: origin, Data: raw}, nil
}
