package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// isolateCache points the user cache directory at a temporary directory.
func isolateCache(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
		{"path traversal", "..", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetTokenFilePath(t *testing.T) {
	tests := []struct {
		account string
		want    string
	}{
		{"default", "google-default.token"},
		{"work", "google-work.token"},
	}

	for _, tt := range tests {
		t.Run(tt.account, func(t *testing.T) {
			got := getTokenFilePath(tt.account)
			assert.Equal(t, tt.want, filepath.Base(got))
			assert.Equal(t, appDir, filepath.Base(filepath.Dir(got)))
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	isolateCache(t)

	assert.False(t, HasTokenForAccount("work"))
	_, err := LoadToken("work")
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, SaveToken("work", tok))
	assert.True(t, HasTokenForAccount("work"))

	info, err := os.Stat(getTokenFilePath("work"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadToken("work")
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, got.AccessToken)
	assert.Equal(t, tok.RefreshToken, got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))

	require.NoError(t, DeleteToken("work"))
	assert.False(t, HasTokenForAccount("work"))
	require.NoError(t, DeleteToken("work"), "deleting twice is fine")
}

func TestLoadToken_Corrupt(t *testing.T) {
	isolateCache(t)
	require.NoError(t, os.MkdirAll(tokenDir(), 0o700))
	require.NoError(t, os.WriteFile(getTokenFilePath("default"), []byte("access refresh"), 0o600))

	_, err := LoadToken("default")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoToken))
}

func TestHasTokenForAccount_Invalid(t *testing.T) {
	assert.False(t, HasTokenForAccount("invalid account"))
	assert.False(t, HasTokenForAccount(""))
}

func TestOAuthConfig(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("GOOGLE_CLIENT_ID", "id")
		t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

		conf, err := OAuthConfig("")
		require.NoError(t, err)
		assert.Equal(t, "id", conf.ClientID)
		assert.Equal(t, Scopes, conf.Scopes)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("GOOGLE_CLIENT_ID", "")
		t.Setenv("GOOGLE_CLIENT_SECRET", "")

		_, err := OAuthConfig("")
		assert.ErrorIs(t, err, ErrNoClientCredentials)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"installed":{
			"client_id":"file-id","client_secret":"file-secret",
			"auth_uri":"https://accounts.google.com/o/oauth2/auth",
			"token_uri":"https://oauth2.googleapis.com/token",
			"redirect_uris":["http://localhost"]}}`), 0o600))

		conf, err := OAuthConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "file-id", conf.ClientID)
		assert.Equal(t, "file-secret", conf.ClientSecret)
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := OAuthConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})
}

func TestGetHTTPClientForAccount(t *testing.T) {
	isolateCache(t)
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	_, err := GetHTTPClientForAccount(context.Background(), "default", "")
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, SaveToken("default", &oauth2.Token{
		AccessToken: "valid",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))
	client, err := GetHTTPClientForAccount(context.Background(), "default", "")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestGetAuthenticationErrorMessage(t *testing.T) {
	for _, account := range []string{"default", "work"} {
		msg := GetAuthenticationErrorMessage(account)
		assert.Contains(t, msg, account)
		assert.Contains(t, msg, "OAuth")
		assert.Contains(t, msg, "contactstats auth google")
	}
}
