package calendar

import (
	"context"
	"errors"
	"time"

	"calmora/models"

	"golang.org/x/oauth2"
)

var (
	// ErrCredentialExpired degrades the provider's conflict detection to
	// "external events unknown"; it never blocks other providers' syncs.
	ErrCredentialExpired = errors.New("calendar credential expired or missing")

	// ErrSyncTransport marks a transient upstream failure; the sync is
	// retried on the next scheduled tick.
	ErrSyncTransport = errors.New("calendar sync transport error")

	// ErrSyncTokenRejected means the incremental sync token was refused
	// upstream and a full refetch is required.
	ErrSyncTokenRejected = errors.New("sync token rejected upstream")
)

// ListResult is one page-complete listing from the upstream calendar.
type ListResult struct {
	Upserts       []models.ExternalEvent
	RemovedIDs    []string // external ids cancelled upstream (incremental only)
	NextSyncToken string
}

// API abstracts the upstream calendar. An empty syncToken requests a full
// listing of [from, to]; a non-empty one requests changes since that token
// and must fail with ErrSyncTokenRejected when the token is stale.
type API interface {
	ListEvents(ctx context.Context, cred *oauth2.Token, calendarID string, from, to time.Time, syncToken string) (*ListResult, error)
}

// CredentialStore resolves a provider's calendar credential. It must refresh
// near-expiry tokens itself; a credential it cannot produce is reported as
// ErrCredentialExpired, never as "no conflicts".
type CredentialStore interface {
	GetCalendarCredential(ctx context.Context, providerID string) (*oauth2.Token, error)
	SaveCalendarCredential(ctx context.Context, providerID string, token *oauth2.Token) error
}
