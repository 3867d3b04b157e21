package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/types"
	"github.com/hashicorp/go-multierror"
)

// DefaultSolcastURL is the Solcast API root.
const DefaultSolcastURL = "https://api.solcast.com.au"

const defaultSlotDuration = 30 * time.Minute

// errCredentialRejected marks a quota exceeded or not found response, which
// moves the rotator on to the next credential.
var errCredentialRejected = errors.New("credential rejected")

// Client fetches rooftop site forecasts from Solcast.
type Client struct {
	apiURL string
	client *http.Client
}

// NewClient creates a Client against apiURL using the given http client.
func NewClient(apiURL string, client *http.Client) *Client {
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: client,
	}
}

type solcastForecast struct {
	PVEstimate   float64 `json:"pv_estimate"`
	PVEstimate10 float64 `json:"pv_estimate10"`
	PVEstimate90 float64 `json:"pv_estimate90"`
	CloudOpacity float64 `json:"cloud_opacity"`
	Temp         float64 `json:"temp"`
	GHI          float64 `json:"ghi"`
	DHI          float64 `json:"dhi"`
	DNI          float64 `json:"dni"`
	PeriodEnd    string  `json:"period_end"`
	Period       string  `json:"period"`
}

type solcastResponse struct {
	Forecasts []solcastForecast `json:"forecasts"`
}

// tomorrowWindow returns [tomorrow 00:00Z, tomorrow 23:59:59Z] where tomorrow
// is the calendar day after now in now's location.
func tomorrowWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.AddDate(0, 0, 1).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
	return start, end
}

// FetchTomorrow fetches tomorrow's forecast, trying each credential at most
// once. A quota exceeded or not found response rotates to the next
// credential; any other failure stops immediately with ErrRemoteUnavailable.
// The rotator's call counter is left untouched.
func (c *Client) FetchTomorrow(ctx context.Context, now time.Time, rotator *QuotaRotator) (types.ForecastSeries, error) {
	if rotator.Len() == 0 {
		return nil, fmt.Errorf("%w: no credentials configured", ErrAllCredentialsExhausted)
	}
	start, end := tomorrowWindow(now)

	var failures *multierror.Error
	for attempt := 0; attempt < rotator.Len(); attempt++ {
		cred, _ := rotator.Current()
		series, err := c.fetch(ctx, cred, start, end)
		if err == nil {
			return series, nil
		}
		if !errors.Is(err, errCredentialRejected) {
			return nil, err
		}
		failures = multierror.Append(failures, err)
		next := rotator.Rotate()
		log.Ctx(ctx).WarnContext(
			ctx,
			"solcast credential rejected, rotating",
			slog.String("site", cred.SiteID),
			slog.String("nextSite", next.SiteID),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllCredentialsExhausted, failures.ErrorOrNil())
}

func (c *Client) fetch(ctx context.Context, cred Credential, start, end time.Time) (types.ForecastSeries, error) {
	u, err := url.Parse(c.apiURL + "/rooftop_sites/" + url.PathEscape(cred.SiteID) + "/forecasts")
	if err != nil {
		return nil, fmt.Errorf("%w: invalid api url: %w", ErrRemoteUnavailable, err)
	}
	params := url.Values{}
	params.Set("format", "json")
	params.Set("api_key", cred.APIKey)
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrRemoteUnavailable, err)
	}
	log.Ctx(ctx).DebugContext(
		ctx,
		"fetching forecast from solcast",
		slog.String("site", cred.SiteID),
		slog.Time("start", start),
		slog.Time("end", end),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch forecast: %w", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: site %s returned status %d", errCredentialRejected, cred.SiteID, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: solcast returned status %d", ErrRemoteUnavailable, resp.StatusCode)
	}

	var data solcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrRemoteUnavailable, err)
	}

	series := make(types.ForecastSeries, 0, len(data.Forecasts))
	for _, f := range data.Forecasts {
		periodEnd, err := time.Parse(time.RFC3339, f.PeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid period_end %q: %w", ErrRemoteUnavailable, f.PeriodEnd, err)
		}
		series = append(series, types.ForecastPoint{
			PeriodStart:  periodEnd.Add(-parsePeriod(f.Period)),
			PeriodEnd:    periodEnd,
			PVEstimate:   f.PVEstimate,
			PVEstimate10: f.PVEstimate10,
			PVEstimate90: f.PVEstimate90,
			CloudOpacity: f.CloudOpacity,
			Temp:         f.Temp,
			GHI:          f.GHI,
			DHI:          f.DHI,
			DNI:          f.DNI,
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].PeriodEnd.Before(series[j].PeriodEnd)
	})

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched forecast",
		slog.String("site", cred.SiteID),
		slog.Int("count", len(series)),
	)
	return series, nil
}

// parsePeriod understands the ISO-8601 time durations solcast uses (PT30M,
// PT1H) and falls back to 30 minutes.
func parsePeriod(p string) time.Duration {
	if !strings.HasPrefix(p, "PT") {
		return defaultSlotDuration
	}
	d, err := time.ParseDuration(strings.ToLower(strings.TrimPrefix(p, "PT")))
	if err != nil || d <= 0 {
		return defaultSlotDuration
	}
	return d
}
