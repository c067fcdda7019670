package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ytget/dit/internal/model"
)

// Defaults
const (
	DefaultHost      = "https://en.reddit.com/"
	DefaultUserAgent = "dit (saved media downloader)"
	DefaultTimeout   = 30 * time.Second

	sessionCookieName = "reddit_session"
	modhashHeader     = "X-Modhash"
	maxErrorBodyBytes = 4 << 10
)

// Page is one slice of the saved-items listing
type Page struct {
	Items      []model.SavedItem
	NextCursor string
}

// Session owns one authenticated connection to the remote API
type Session struct {
	host      *url.URL
	userAgent string
	client    *http.Client
	logger    *slog.Logger

	mu  sync.RWMutex
	cfg model.SessionConfig
}

// Option configures a Session
type Option func(*Session)

// WithHost points the session at another API host
func WithHost(host string) Option {
	return func(s *Session) {
		if u, err := url.Parse(host); err == nil && u.Host != "" {
			if !strings.HasSuffix(u.Path, "/") {
				u.Path += "/"
			}
			s.host = u
		}
	}
}

// WithUserAgent sets the User-Agent sent with every request
func WithUserAgent(ua string) Option {
	return func(s *Session) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		if c != nil {
			s.client = c
		}
	}
}

// WithSessionConfig resumes a previously stored session
func WithSessionConfig(cfg model.SessionConfig) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates an unauthenticated session
func NewSession(opts ...Option) *Session {
	host, _ := url.Parse(DefaultHost)
	s := &Session{
		host:      host,
		userAgent: DefaultUserAgent,
		client:    &http.Client{Timeout: DefaultTimeout},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login sends credentials and stores the returned cookie and modhash
func (s *Session) Login(ctx context.Context, creds model.Credentials) (model.SessionConfig, error) {
	form := url.Values{
		"user":     {creds.User},
		"passwd":   {creds.Password},
		"api_type": {"json"},
		"rem":      {"true"},
	}

	req, err := s.newRequest(ctx, http.MethodPost, "api/login.json", nil, strings.NewReader(form.Encode()))
	if err != nil {
		return model.SessionConfig{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return model.SessionConfig{}, &AuthError{Status: resp.StatusCode}
		}
		return model.SessionConfig{}, &AuthError{Status: resp.StatusCode, Reason: "malformed response: " + err.Error()}
	}

	if errs := body.JSON.Errors; len(errs) > 0 {
		return model.SessionConfig{}, &AuthError{Status: resp.StatusCode, Errors: parseRemoteErrors(errs)}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return model.SessionConfig{}, &AuthError{Status: resp.StatusCode}
	}
	if body.JSON.Data.Cookie == "" || body.JSON.Data.Modhash == "" {
		return model.SessionConfig{}, &AuthError{Status: resp.StatusCode, Reason: "response carried no session"}
	}

	cfg := model.SessionConfig{
		User:       creds.User,
		AuthToken:  body.JSON.Data.Cookie,
		AuthSecret: body.JSON.Data.Modhash,
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	s.logger.Debug("logged in", slog.String("user", creds.User))
	return cfg, nil
}

// IsAuthenticated reports whether token, secret and user are all present.
// Token expiry is deliberately not checked; see Expired.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.IsComplete()
}

// Expired reports whether a known token expiry has passed
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TokenExpiry != nil && now.After(*s.cfg.TokenExpiry)
}

// Config returns a copy of the auth state
func (s *Session) Config() model.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// FetchSavedPage fetches one page of the user's saved items. An empty cursor
// requests the first page.
func (s *Session) FetchSavedPage(ctx context.Context, cursor string) (Page, error) {
	user := s.Config().User
	if user == "" {
		return Page{}, ErrNotAuthenticated
	}

	query := url.Values{}
	if cursor != "" {
		query.Set("after", cursor)
	}

	req, err := s.newRequest(ctx, http.MethodGet, "user/"+user+"/saved.json", query, nil)
	if err != nil {
		return Page{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("saved request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("read saved response: %w", err)
	}

	var body listingResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return Page{}, &APIError{Status: resp.StatusCode, Message: truncate(string(raw), maxErrorBodyBytes)}
		}
		return Page{}, fmt.Errorf("decode saved response: %w", err)
	}

	if apiErr := body.apiError(resp.StatusCode); apiErr != nil {
		return Page{}, apiErr
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Page{}, &APIError{Status: resp.StatusCode}
	}

	page := Page{Items: make([]model.SavedItem, 0, len(body.Data.Children))}
	for _, child := range body.Data.Children {
		item := child.Data.toItem()
		if item.URL == "" {
			s.logger.Debug("skipping saved record without url", slog.String("id", item.ID))
			continue
		}
		page.Items = append(page.Items, item)
	}
	if body.Data.After != nil {
		page.NextCursor = *body.Data.After
	}

	s.logger.Debug("fetched saved page",
		slog.String("cursor", cursor),
		slog.Int("items", len(page.Items)),
		slog.String("next", page.NextCursor),
	)
	return page, nil
}

// newRequest builds a request under the API host and attaches auth when present
func (s *Session) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	ref := &url.URL{Path: path}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	target := s.host.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	cfg := s.Config()
	if cfg.AuthToken != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: url.QueryEscape(cfg.AuthToken)})
	}
	if cfg.AuthSecret != "" {
		req.Header.Set(modhashHeader, cfg.AuthSecret)
	}
	return req, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
