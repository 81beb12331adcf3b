package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultAccount is the account name used when none is given.
const DefaultAccount = "default"

const appDir = "contactstats"

var (
	// ErrNoToken is returned when no token is stored for an account.
	ErrNoToken = errors.New("no Google OAuth token found")

	// ErrNoClientCredentials is returned when neither a credentials file nor
	// client id and secret are configured.
	ErrNoClientCredentials = errors.New("no Google OAuth client credentials configured")
)

// Scopes are the OAuth scopes requested for every account.
var Scopes = []string{gmail.GmailReadonlyScope}

var accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// validateAccountName ensures the account name is safe to embed in a file name.
func validateAccountName(account string) error {
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

// ValidateAccountName reports whether account can be used as an account name.
func ValidateAccountName(account string) error {
	return validateAccountName(account)
}

func tokenDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, appDir)
}

func getTokenFilePath(account string) string {
	return filepath.Join(tokenDir(), "google-"+account+".token")
}

// HasTokenForAccount checks if a token file exists for the specified account.
func HasTokenForAccount(account string) bool {
	if validateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// LoadToken reads the stored token for account. It returns an error wrapping
// ErrNoToken when nothing is stored.
func LoadToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(getTokenFilePath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("account %s: %w", account, ErrNoToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token for account %s: %w", account, err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token for account %s: %w", account, err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("account %s: empty token: %w", account, ErrNoToken)
	}
	return &tok, nil
}

// SaveToken stores tok for account with owner-only permissions.
func SaveToken(account string, tok *oauth2.Token) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	dir := tokenDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	path := getTokenFilePath(account)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// DeleteToken removes the stored token for account. Deleting a missing token is not an error.
func DeleteToken(account string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	if err := os.Remove(getTokenFilePath(account)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token for account %s: %w", account, err)
	}
	return nil
}

// OAuthConfig returns the OAuth client configuration. A non-empty
// credentialsFile takes precedence over GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	if credentialsFile != "" {
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials at %s: %w", credentialsFile, err)
		}
		conf, err := google.ConfigFromJSON(b, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse oauth config: %w", err)
		}
		return conf, nil
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, ErrNoClientCredentials
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}, nil
}

// GetHTTPClientForAccount returns an HTTP client authorized for account.
// Refreshed tokens are written back to the token file.
func GetHTTPClientForAccount(ctx context.Context, account, credentialsFile string) (*http.Client, error) {
	tok, err := LoadToken(account)
	if err != nil {
		return nil, err
	}

	conf, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	ts := &persistingTokenSource{
		account: account,
		base:    conf.TokenSource(ctx, tok),
		last:    tok.AccessToken,
	}
	src := oauth2.ReuseTokenSource(tok, ts)
	if _, err := src.Token(); err != nil {
		return nil, fmt.Errorf("cached token for account %s is invalid: %w", account, err)
	}
	return oauth2.NewClient(ctx, src), nil
}

// persistingTokenSource saves every token that differs from the last one seen.
type persistingTokenSource struct {
	account string
	base    oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token for account %s: %w", s.account, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveToken(s.account, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// GetAuthenticationErrorMessage returns the hint shown when an account has no usable token.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token for account %q is missing or invalid. "+
		"Run 'contactstats auth google --account %s' to authorize read-only Gmail access.",
		account, account)
}
