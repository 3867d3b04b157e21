package forecast

import (
	"context"
	"log/slog"
	"time"

	"github.com/airepert/airepert/pkg/common"
	"github.com/airepert/airepert/pkg/log"
	"github.com/levenlabs/go-lflag"
)

// Configured sets up the forecast Manager from flags and the SOLCAST_*
// environment variables.
func Configured() *Manager {
	apiURL := lflag.String("solcast-api-url", DefaultSolcastURL, "URL for the Solcast API")
	envFile := lflag.String("solcast-env-file", ".env", "dotenv file holding SOLCAST_API_KEYn/SOLCAST_SITE_IDn pairs (optional)")
	timeout := lflag.Duration("solcast-timeout", 10*time.Second, "Timeout for Solcast requests")
	callsPerCredential := lflag.Int("solcast-calls-per-credential", DefaultCallsPerCredential, "Daily Solcast calls allowed per credential")
	ttl := lflag.Duration("forecast-cache-ttl", DefaultCacheTTL, "How long a fetched forecast is considered fresh")

	m := &Manager{}

	lflag.Do(func() {
		creds, err := LoadCredentials(*envFile)
		if err != nil {
			panic(err)
		}
		if len(creds) == 0 {
			// keep running: dispatch still works without a forecast
			log.Ctx(context.Background()).Error("no solcast credentials configured, forecasts will be unavailable")
		}
		log.Ctx(context.Background()).Debug("solcast credentials loaded", slog.Int("count", len(creds)))

		m.cache = NewCache(*ttl)
		m.rotator = NewQuotaRotator(creds, *callsPerCredential)
		m.fetcher = NewClient(*apiURL, common.HTTPClient(*timeout))
	})

	return m
}
