package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"baby-meal-planner/internal/config"
	"baby-meal-planner/internal/storage"
)

// StorageKey is where the signed-in session is persisted.
const StorageKey = "babymeal-passport-session"

// refreshMargin refreshes tokens that are about to expire.
const refreshMargin = time.Minute

var (
	ErrNotConfigured = errors.New("identity provider is not configured")
	ErrNotSignedIn   = errors.New("not signed in")
)

// APIError is a rejection returned by the identity provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth api error: status %d: %s", e.Status, e.Message)
}

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in identity with its tokens.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// ProfileResetter is cleared on sign-out so the next user starts fresh.
type ProfileResetter interface {
	Reset()
}

// Client talks to a Supabase GoTrue endpoint and keeps the current session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	jwtSecret  []byte
	kv         storage.KV
	profile    ProfileResetter
	now        func() time.Time

	mu      sync.Mutex
	session *Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates an identity client. profile may be nil.
func NewClient(cfg *config.Config, kv storage.KV, profile ProfileResetter, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.SupabaseURL,
		anonKey:    cfg.SupabaseAnonKey,
		kv:         kv,
		profile:    profile,
		now:        time.Now,
	}
	if cfg.SupabaseJWTSecret != "" {
		c.jwtSecret = []byte(cfg.SupabaseJWTSecret)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an identity provider is set up.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.anonKey != ""
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse covers both the session payload and the bare user payload
// returned by sign-up when email confirmation is pending.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
	ID           string `json:"id"`
	Email        string `json:"email"`
}

func (r tokenResponse) session(now time.Time) Session {
	s := Session{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken, ExpiresAt: r.ExpiresAt}
	if s.ExpiresAt == 0 && r.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).Unix()
	}
	if r.User != nil {
		s.User = *r.User
	}
	return s
}

// SignUp registers a new account. When the provider returns a session the
// user is signed in immediately; otherwise confirmation is pending and the
// returned bool is false.
func (c *Client) SignUp(ctx context.Context, email, password string) (User, bool, error) {
	if !c.Configured() {
		return User{}, false, ErrNotConfigured
	}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/signup", "", credentials{email, password}, &resp); err != nil {
		return User{}, false, fmt.Errorf("failed to sign up: %w", err)
	}
	if resp.AccessToken == "" {
		return User{ID: resp.ID, Email: resp.Email}, false, nil
	}
	s := resp.session(c.now())
	c.store(&s)
	return s.User, true, nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	if !c.Configured() {
		return Session{}, ErrNotConfigured
	}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", "", credentials{email, password}, &resp); err != nil {
		return Session{}, fmt.Errorf("failed to sign in: %w", err)
	}
	s := resp.session(c.now())
	c.store(&s)
	return s, nil
}

// SignOut revokes the session remotely, forgets it locally and clears the
// profile. A failed remote revoke is logged; the local state is cleared anyway.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		if loaded, ok := c.load(); ok {
			s = &loaded
		}
	}

	if s != nil && c.Configured() {
		if err := c.post(ctx, "/auth/v1/logout", s.AccessToken, nil, nil); err != nil {
			log.Printf("Warning: failed to revoke session remotely: %v", err)
		}
	}

	c.store(nil)
	if c.profile != nil {
		c.profile.Reset()
	}
	return nil
}

// Restore loads the persisted session, refreshing it when the access token
// has expired. A session that cannot be validated or refreshed is dropped.
func (c *Client) Restore(ctx context.Context) (Session, error) {
	s, ok := c.load()
	if !ok {
		return Session{}, ErrNotSignedIn
	}

	expired, err := c.expired(s)
	if err != nil {
		log.Printf("Warning: dropping invalid session: %v", err)
		c.store(nil)
		return Session{}, ErrNotSignedIn
	}
	if !expired {
		c.mu.Lock()
		c.session = &s
		c.mu.Unlock()
		return s, nil
	}

	refreshed, err := c.refresh(ctx, s)
	if err != nil {
		c.store(nil)
		return Session{}, fmt.Errorf("failed to refresh session: %w", err)
	}
	return refreshed, nil
}

// CurrentUser returns the signed-in user, if any.
func (c *Client) CurrentUser() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return User{}, false
	}
	return c.session.User, true
}

func (c *Client) refresh(ctx context.Context, s Session) (Session, error) {
	if !c.Configured() {
		return Session{}, ErrNotConfigured
	}
	if s.RefreshToken == "" {
		return Session{}, errors.New("session has no refresh token")
	}
	var resp tokenResponse
	body := map[string]string{"refresh_token": s.RefreshToken}
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return Session{}, err
	}
	next := resp.session(c.now())
	if next.User.ID == "" {
		next.User = s.User
	}
	c.store(&next)
	return next, nil
}

// expired reports whether the access token needs a refresh. With a JWT
// secret the signature is verified too.
func (c *Client) expired(s Session) (bool, error) {
	if s.AccessToken == "" {
		return false, errors.New("session has no access token")
	}
	deadline := c.now().Add(refreshMargin)

	if c.jwtSecret != nil {
		_, err := jwt.Parse(s.AccessToken, func(t *jwt.Token) (any, error) {
			return c.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time { return deadline }))
		if err == nil {
			return false, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return true, nil
		}
		return false, fmt.Errorf("failed to verify access token: %w", err)
	}

	tok, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, jwt.MapClaims{})
	if err != nil {
		return false, fmt.Errorf("failed to parse access token: %w", err)
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil {
		return false, fmt.Errorf("failed to read token expiry: %w", err)
	}
	if exp != nil {
		return !deadline.Before(exp.Time), nil
	}
	if s.ExpiresAt > 0 {
		return deadline.Unix() >= s.ExpiresAt, nil
	}
	return false, nil
}

func (c *Client) post(ctx context.Context, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	msg := payload.ErrorDescription
	for _, candidate := range []string{payload.Msg, payload.Message, payload.Error} {
		if msg != "" {
			break
		}
		msg = candidate
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func (c *Client) load() (Session, bool) {
	var s Session
	if !storage.LoadJSON(c.kv, StorageKey, &s) || s.AccessToken == "" {
		return Session{}, false
	}
	return s, true
}

// store replaces the current session; nil signs out locally.
func (c *Client) store(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	if s == nil {
		if err := c.kv.Delete(StorageKey); err != nil {
			log.Printf("Warning: failed to delete session: %v", err)
		}
		return
	}
	storage.SaveJSON(c.kv, StorageKey, s)
}
