package models

import "time"

// Calendar link states for a provider's external calendar connection.
const (
	CalendarLinkNone    = "none"
	CalendarLinkValid   = "valid"
	CalendarLinkExpired = "expired"
)

// Provider represents a therapist who owns a calendar and accepts bookings.
type Provider struct {
	ID       string `bson:"id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Timezone string `bson:"timezone" json:"timezone"` // informational; arithmetic uses the operating zone

	// Workday bounds define the per-day slot template, e.g. "08:00:00" to "22:00:00".
	WorkdayStart string `bson:"workday_start" json:"workday_start"`
	WorkdayEnd   string `bson:"workday_end" json:"workday_end"`

	// External calendar link state.
	CalendarLinkStatus string    `bson:"calendar_link_status" json:"calendar_link_status"`
	CalendarID         string    `bson:"calendar_id,omitempty" json:"calendar_id,omitempty"`
	CalendarSyncToken  string    `bson:"calendar_sync_token,omitempty" json:"-"`
	LastSyncedAt       time.Time `bson:"last_synced_at,omitempty" json:"last_synced_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// CalendarLinked reports whether the provider has a usable external calendar link.
func (p *Provider) CalendarLinked() bool {
	return p.CalendarLinkStatus == CalendarLinkValid
}
