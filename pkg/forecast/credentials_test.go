package forecast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsFromEnv(t *testing.T) {
	env := map[string]string{
		"SOLCAST_API_KEY1": "k1",
		"SOLCAST_SITE_ID1": "s1",
		"SOLCAST_API_KEY2": "k2",
		"SOLCAST_SITE_ID2": "s2",
		// 3 is incomplete so 4 is never reached
		"SOLCAST_API_KEY3": "k3",
		"SOLCAST_API_KEY4": "k4",
		"SOLCAST_SITE_ID4": "s4",
	}
	creds := credentialsFromEnv(func(k string) string { return env[k] })
	assert.Equal(t, []Credential{
		{APIKey: "k1", SiteID: "s1"},
		{APIKey: "k2", SiteID: "s2"},
	}, creds)

	assert.Empty(t, credentialsFromEnv(func(string) string { return "" }))
}

func TestLoadCredentials(t *testing.T) {
	t.Run("EnvFile", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(file, []byte("SOLCAST_API_KEY1=filekey\nSOLCAST_SITE_ID1=filesite\n"), 0o600))
		t.Setenv("SOLCAST_API_KEY1", "")
		t.Setenv("SOLCAST_SITE_ID1", "")
		os.Unsetenv("SOLCAST_API_KEY1")
		os.Unsetenv("SOLCAST_SITE_ID1")

		creds, err := LoadCredentials(file)
		require.NoError(t, err)
		require.Len(t, creds, 1)
		assert.Equal(t, "filesite", creds[0].SiteID)
		assert.Equal(t, "filekey", creds[0].APIKey)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Setenv("SOLCAST_API_KEY1", "envkey")
		t.Setenv("SOLCAST_SITE_ID1", "envsite")
		creds, err := LoadCredentials(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		require.Len(t, creds, 1)
		assert.Equal(t, "envsite", creds[0].SiteID)
	})

	t.Run("StringHidesKey", func(t *testing.T) {
		c := Credential{APIKey: "secret", SiteID: "site"}
		assert.NotContains(t, c.String(), "secret")
	})
}
