package models

import "time"

// ExternalEvent is a mirrored calendar event for a provider. It is eventually
// consistent with the provider's real calendar and never authoritative for
// booking decisions by itself; only the reconciler derives blocking from it.
type ExternalEvent struct {
	ID         string    `bson:"id" json:"id"`
	ProviderID string    `bson:"provider_id" json:"provider_id"`
	ExternalID string    `bson:"external_id" json:"external_id"`
	Title      string    `bson:"title,omitempty" json:"title,omitempty"`
	Start      time.Time `bson:"start" json:"start"`
	End        time.Time `bson:"end" json:"end"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
