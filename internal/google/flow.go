package google

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultRedirectTimeout bounds how long Authorize waits for the browser redirect.
const DefaultRedirectTimeout = 2 * time.Minute

// Flow runs the interactive authorization code flow.
type Flow struct {
	Config *oauth2.Config

	// Out receives instructions for the user.
	Out io.Writer

	// In is read when the loopback redirect cannot be used and the user
	// pastes the code or the redirect URL instead.
	In io.Reader

	// RedirectTimeout defaults to DefaultRedirectTimeout.
	RedirectTimeout time.Duration
}

type callbackResult struct {
	code string
	err  error
}

// Authorize obtains a token. It listens on a random loopback port for the
// redirect and falls back to a pasted code when the listener cannot be
// started or the redirect does not arrive in time.
func (f *Flow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	conf := *f.Config
	verifier := oauth2.GenerateVerifier()
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	timeout := f.RedirectTimeout
	if timeout <= 0 {
		timeout = DefaultRedirectTimeout
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port)

		resCh := make(chan callbackResult, 1)
		srv := &http.Server{
			ReadHeaderTimeout: 5 * time.Second,
			Handler:           callbackHandler(state, resCh),
		}
		go func() { _ = srv.Serve(ln) }()
		defer func() { _ = srv.Shutdown(context.Background()) }()

		authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
		fmt.Fprintln(f.Out, "Open this URL in your browser to authorize read-only Gmail access:")
		fmt.Fprintln(f.Out, authURL)
		fmt.Fprintf(f.Out, "Waiting for redirect on %s ...\n", conf.RedirectURL)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-resCh:
			if r.err != nil {
				return nil, r.err
			}
			return exchange(ctx, &conf, r.code, verifier)
		case <-time.After(timeout):
			fmt.Fprintln(f.Out, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	return f.manual(ctx, &conf, state, verifier)
}

func (f *Flow) manual(ctx context.Context, conf *oauth2.Config, state, verifier string) (*oauth2.Token, error) {
	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	fmt.Fprintln(f.Out, "Open this URL in your browser to authorize read-only Gmail access:")
	fmt.Fprintln(f.Out, authURL)
	fmt.Fprintln(f.Out, "")
	fmt.Fprintln(f.Out, "Paste the authorization code or the full redirect URL here, then press Enter.")
	fmt.Fprint(f.Out, "> ")

	if f.In == nil {
		return nil, errors.New("no input available for the authorization code")
	}
	sc := bufio.NewScanner(f.In)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}

	code, err := parseAuthInput(sc.Text())
	if err != nil {
		return nil, err
	}
	return exchange(ctx, conf, code, verifier)
}

func exchange(ctx context.Context, conf *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}

// callbackHandler accepts the OAuth redirect and delivers the code once.
func callbackHandler(state string, resCh chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization failed: "+e, http.StatusBadRequest)
			deliver(resCh, callbackResult{err: fmt.Errorf("authorization denied: %s", e)})
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		deliver(resCh, callbackResult{code: code})
	})
}

func deliver(resCh chan<- callbackResult, r callbackResult) {
	select {
	case resCh <- r:
	default:
	}
}

// parseAuthInput accepts a bare authorization code or a redirect URL carrying one.
func parseAuthInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
