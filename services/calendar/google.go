package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"calmora/models"
	"calmora/timecodec"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleAPI reads busy events from Google Calendar v3 using each provider's
// own OAuth credential. A shared rate limiter keeps the periodic fan-out of
// per-provider syncs under the upstream quota.
type GoogleAPI struct {
	Limiter *rate.Limiter
}

func NewGoogleAPI() *GoogleAPI {
	// Google allows far more, this just smooths the sweep bursts.
	return &GoogleAPI{Limiter: rate.NewLimiter(rate.Limit(5), 10)}
}

func (g *GoogleAPI) ListEvents(ctx context.Context, cred *oauth2.Token, calendarID string, from, to time.Time, syncToken string) (*ListResult, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(cred)))
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar client: %w", ErrSyncTransport)
	}

	result := &ListResult{}
	pageToken := ""
	for {
		call := svc.Events.List(calendarID).
			Context(ctx).
			SingleEvents(true).
			MaxResults(250)
		if syncToken != "" {
			call = call.SyncToken(syncToken)
		} else {
			call = call.TimeMin(from.Format(time.RFC3339)).TimeMax(to.Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, classifyError(err)
		}

		for _, item := range page.Items {
			if item.Status == "cancelled" {
				result.RemovedIDs = append(result.RemovedIDs, item.Id)
				continue
			}
			ev, ok := toExternalEvent(item)
			if !ok {
				continue
			}
			result.Upserts = append(result.Upserts, ev)
		}

		if page.NextPageToken == "" {
			result.NextSyncToken = page.NextSyncToken
			return result, nil
		}
		pageToken = page.NextPageToken
	}
}

func classifyError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case http.StatusGone:
			return fmt.Errorf("calendar listing: %w", ErrSyncTokenRejected)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("calendar listing: %w", ErrCredentialExpired)
		}
	}
	return fmt.Errorf("calendar listing failed: %w", ErrSyncTransport)
}

func toExternalEvent(item *calendar.Event) (models.ExternalEvent, bool) {
	start, ok := eventTime(item.Start)
	if !ok {
		return models.ExternalEvent{}, false
	}
	end, ok := eventTime(item.End)
	if !ok {
		return models.ExternalEvent{}, false
	}
	updated, _ := time.Parse(time.RFC3339, item.Updated)
	return models.ExternalEvent{
		ExternalID: item.Id,
		Title:      item.Summary,
		Start:      start,
		End:        end,
		UpdatedAt:  updated,
	}, true
}

// eventTime handles both timed events (DateTime) and all-day events (Date).
// All-day bounds carry no offset, so they resolve to midnight in the
// operating timezone, the same zone slot intervals are built in.
func eventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		return t, err == nil
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", edt.Date, timecodec.Location())
		return t, err == nil
	}
	return time.Time{}, false
}
