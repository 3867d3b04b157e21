package forecast

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Credential is an api key and the rooftop site it belongs to.
type Credential struct {
	APIKey string
	SiteID string
}

// String never prints the api key.
func (c Credential) String() string {
	return "site:" + c.SiteID
}

// LoadCredentials reads SOLCAST_API_KEY1/SOLCAST_SITE_ID1, SOLCAST_API_KEY2/...
// from the environment, stopping at the first incomplete pair. If envFile is
// set and exists it is loaded first without overriding existing variables.
func LoadCredentials(envFile string) ([]Credential, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file (%s): %w", envFile, err)
		}
	}
	return credentialsFromEnv(os.Getenv), nil
}

func credentialsFromEnv(getenv func(string) string) []Credential {
	var creds []Credential
	for i := 1; ; i++ {
		n := strconv.Itoa(i)
		key := getenv("SOLCAST_API_KEY" + n)
		site := getenv("SOLCAST_SITE_ID" + n)
		if key == "" || site == "" {
			break
		}
		creds = append(creds, Credential{APIKey: key, SiteID: site})
	}
	return creds
}
