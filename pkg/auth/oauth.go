package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	// ClientSecretsFile is the Google API credentials.json downloaded from the
	// Cloud Console, kept in the notask config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the user's OAuth token (access + refresh) next to it.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local server waits for the OAuth redirect.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// CalendarScopes are the scopes the calendar mirror needs.
var CalendarScopes = []string{
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
}

// Flow runs the Google OAuth2 desktop flow, keeping its files in Dir.
type Flow struct {
	Dir    string
	Logger *slog.Logger
}

// NewFlow creates a Flow rooted at dir.
func NewFlow(dir string, logger *slog.Logger) *Flow {
	return &Flow{Dir: dir, Logger: logger}
}

func (f *Flow) tokenPath() string { return filepath.Join(f.Dir, TokenFile) }

// Config creates an oauth2.Config from the client secrets file.
func (f *Flow) Config(scopes []string) (*oauth2.Config, error) {
	path := filepath.Join(f.Dir, ClientSecretsFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", path, err)
	}

	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	cfg.RedirectURL = f.normalizeRedirect(cfg.RedirectURL)
	return cfg, nil
}

// normalizeRedirect forces localhost and out-of-band redirects onto the port
// the local callback server listens on. Other redirects are kept as is.
func (f *Flow) normalizeRedirect(redirect string) string {
	if redirect == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}

	u, err := url.Parse(redirect)
	if err != nil {
		f.Logger.Warn("could not parse redirect URL, using it as is", "redirect", redirect, "error", err)
		return redirect
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		f.Logger.Warn("redirect URL is not a localhost callback", "redirect", redirect)
		return redirect
	}
	if u.Port() != LocalhostAuthPort {
		if u.Port() != "" {
			f.Logger.Warn("forcing redirect port", "configured", u.Port(), "port", LocalhostAuthPort)
		}
		u.Host = net.JoinHostPort(u.Hostname(), LocalhostAuthPort)
	}
	return u.String()
}

// Client returns an authenticated *http.Client, running the browser flow when
// no token is saved yet. Refreshed tokens are written back to disk.
func (f *Flow) Client(ctx context.Context, scopes []string) (*http.Client, error) {
	cfg, err := f.Config(scopes)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(f.tokenPath())
	if err != nil {
		f.Logger.Info("no saved token, starting web authorization", "path", f.tokenPath())
		tok, err = f.tokenFromWeb(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(f.tokenPath(), tok); err != nil {
			return nil, err
		}
	}

	src := &savingSource{
		base:   cfg.TokenSource(ctx, tok),
		last:   tok,
		path:   f.tokenPath(),
		logger: f.Logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// Reset removes the saved token so the next Client call re-authorizes.
func (f *Flow) Reset() error {
	err := os.Remove(f.tokenPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not delete token file %s: %w", f.tokenPath(), err)
	}
	if err == nil {
		f.Logger.Info("removed saved token", "path", f.tokenPath())
	}
	return nil
}

// savingSource persists the token whenever the underlying source refreshes it.
type savingSource struct {
	base   oauth2.TokenSource
	last   *oauth2.Token
	path   string
	logger *slog.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			s.logger.Warn("could not save refreshed token", "error", err)
		}
		s.last = tok
	}
	return tok, nil
}

// tokenFromWeb runs the authorization code flow with a local callback server.
func (f *Flow) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- errors.New("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	// AccessTypeOffline is what makes Google return a refresh token.
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(os.Stderr, "Open the following URL in your browser to authorize notask:\n%s\n", authURL)
	f.Logger.Info("waiting for authorization code", "redirect", cfg.RedirectURL)

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, errors.New("authorization timed out, please try again")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
