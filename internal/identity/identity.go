// Package identity signs the user in with Google, refreshes the access token
// without prompting, and signs out.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"todosync/internal/cache"
	"todosync/internal/config"
	"todosync/internal/credstore"
	"todosync/internal/kvstore"
	"todosync/internal/logging"
	"todosync/internal/service"
)

// OAuth scopes requested at sign-in.
const (
	TasksScope       = "https://www.googleapis.com/auth/tasks"
	UserProfileScope = "https://www.googleapis.com/auth/userinfo.profile"
	UserEmailScope   = "https://www.googleapis.com/auth/userinfo.email"
)

// Google endpoints not covered by the oauth2 package.
const (
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	DefaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

var (
	// ErrNoOAuthClient is returned when oauth_client.json is missing.
	ErrNoOAuthClient = errors.New("oauth client configuration not found")

	// ErrInteractionRequired is returned when a token cannot be issued without prompting.
	ErrInteractionRequired = errors.New("cannot refresh without user interaction")

	// ErrStateMismatch is returned when the callback state does not match the stored nonce.
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// LoadOAuthConfig reads the OAuth client file from the config directory.
func LoadOAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	if !cfg.HasOAuthClient() {
		return nil, service.AuthError("load oauth client", ErrNoOAuthClient)
	}
	data, err := cfg.ReadOAuthClient()
	if err != nil {
		return nil, service.AuthError("load oauth client", err)
	}
	oc, err := google.ConfigFromJSON(data, TasksScope, UserProfileScope, UserEmailScope)
	if err != nil {
		return nil, service.AuthError("load oauth client", fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err))
	}
	return oc, nil
}

// Client performs OAuth flows against Google and keeps the result in the
// credential store.
type Client struct {
	oauth      *oauth2.Config
	creds      *credstore.Store
	kv         kvstore.Store
	cache      *cache.Cache
	httpClient *http.Client
	logger     *slog.Logger

	userInfoURL     string
	revokeURL       string
	opener          func(url string) error
	prompt          io.Writer
	startPort       int
	portAttempts    int
	callbackTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for token, userinfo and revoke calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoints overrides the userinfo and revoke endpoints.
func WithEndpoints(userInfoURL, revokeURL string) Option {
	return func(c *Client) {
		c.userInfoURL = userInfoURL
		c.revokeURL = revokeURL
	}
}

// WithOpener sets the function that shows the consent URL to the user,
// typically by launching a browser.
func WithOpener(open func(url string) error) Option {
	return func(c *Client) { c.opener = open }
}

// WithPrompt sets where the consent URL is printed.
func WithPrompt(w io.Writer) Option {
	return func(c *Client) {
		if w != nil {
			c.prompt = w
		}
	}
}

// WithCallbackPorts sets the first loopback port and the number of ports tried.
// Port 0 picks any free port.
func WithCallbackPorts(start, attempts int) Option {
	return func(c *Client) {
		c.startPort = start
		c.portAttempts = attempts
	}
}

// WithCallbackTimeout limits how long SignIn waits for the browser.
func WithCallbackTimeout(d time.Duration) Option {
	return func(c *Client) { c.callbackTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates an identity client. kv and c are cleared on sign-out together
// with the credentials.
func New(oc *oauth2.Config, creds *credstore.Store, kv kvstore.Store, c *cache.Cache, opts ...Option) *Client {
	cl := &Client{
		oauth:           oc,
		creds:           creds,
		kv:              kv,
		cache:           c,
		httpClient:      &http.Client{Timeout: tokenExchangeTimeout},
		userInfoURL:     DefaultUserInfoURL,
		revokeURL:       DefaultRevokeURL,
		prompt:          io.Discard,
		startPort:       oauthStartPort,
		portAttempts:    oauthMaxPortAttempts,
		callbackTimeout: oauthCallbackTimeout,
	}
	for _, opt := range opts {
		opt(cl)
	}
	cl.logger = logging.OrDefault(cl.logger)
	return cl
}

var _ service.TokenRefresher = (*Client)(nil)

// httpContext makes oauth2 use the configured HTTP client.
func (c *Client) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

type callbackResult struct {
	code  string
	state string
	err   error
}

// SignIn runs the interactive authorization code flow with PKCE and a
// loopback redirect, then stores the token and profile.
func (c *Client) SignIn(ctx context.Context) (service.Credential, error) {
	const op = "sign in"
	if c.oauth == nil {
		return service.Credential{}, service.AuthError(op, ErrNoOAuthClient)
	}

	nonce := uuid.NewString()
	if err := c.creds.SaveNonce(ctx, nonce); err != nil {
		return service.Credential{}, fmt.Errorf("store oauth state: %w", err)
	}

	port, listener, err := c.findAvailablePort()
	if err != nil {
		return service.Credential{}, service.AuthError(op, err)
	}
	defer listener.Close()

	oc := *c.oauth
	oc.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	verifier := oauth2.GenerateVerifier()
	authURL := oc.AuthCodeURL(nonce, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	fmt.Fprintln(c.prompt, "Open this URL in your browser:")
	fmt.Fprintln(c.prompt, authURL)

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := callbackResult{code: q.Get("code"), state: q.Get("state")}
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("provider returned %q", q.Get("error"))
			http.Error(w, "Authentication failed", http.StatusBadRequest)
		case res.code == "":
			res.err = errors.New("no code in callback")
			http.Error(w, "No code in callback", http.StatusBadRequest)
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		}
		select {
		case resultCh <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: err}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if c.opener != nil {
		if err := c.opener(authURL); err != nil {
			c.logger.Warn("failed to open browser", logging.Err(err))
		}
	}

	var res callbackResult
	select {
	case res = <-resultCh:
	case <-time.After(c.callbackTimeout):
		return service.Credential{}, service.AuthError(op, errors.New("oauth callback timed out"))
	case <-ctx.Done():
		return service.Credential{}, service.AuthError(op, fmt.Errorf("cancelled: %w", ctx.Err()))
	}
	if res.err != nil {
		return service.Credential{}, service.AuthError(op, res.err)
	}

	ok, err := c.creds.ConsumeNonce(ctx, res.state)
	if err != nil {
		return service.Credential{}, fmt.Errorf("read oauth state: %w", err)
	}
	if !ok {
		return service.Credential{}, service.AuthError(op, ErrStateMismatch)
	}

	exchangeCtx, cancel := context.WithTimeout(c.httpContext(ctx), tokenExchangeTimeout)
	defer cancel()
	token, err := oc.Exchange(exchangeCtx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return service.Credential{}, service.AuthError(op, fmt.Errorf("failed to exchange code for token: %w", err))
	}

	profile, err := c.fetchProfile(ctx, token)
	if err != nil {
		return service.Credential{}, err
	}

	cred := service.Credential{Token: token, Profile: profile}
	if err := c.creds.Save(ctx, cred); err != nil {
		return service.Credential{}, fmt.Errorf("save credential: %w", err)
	}
	c.logger.Info("signed in", logging.UserHash(profile.Email))
	return cred, nil
}

type userInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (c *Client) fetchProfile(ctx context.Context, token *oauth2.Token) (service.Profile, error) {
	const op = "fetch profile"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return service.Profile{}, err
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return service.Profile{}, service.NetworkError(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return service.Profile{}, service.AuthError(op, fmt.Errorf("userinfo returned %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		return service.Profile{}, service.NetworkError(op, fmt.Errorf("userinfo returned %s", resp.Status))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return service.Profile{}, service.DataError(op, err)
	}
	if info.Sub == "" {
		return service.Profile{}, service.DataError(op, errors.New("userinfo has no subject"))
	}
	return service.Profile{ID: info.Sub, Name: info.Name, Email: info.Email, PictureURL: info.Picture}, nil
}

// RefreshToken exchanges the stored refresh token for a new access token,
// stores it and returns it.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	const op = "refresh token"
	if c.oauth == nil {
		return "", service.AuthError(op, ErrNoOAuthClient)
	}
	tok, err := c.creds.Token(ctx)
	if err != nil {
		return "", err
	}
	if tok.RefreshToken == "" {
		return "", service.AuthError(op, ErrInteractionRequired)
	}

	// The remote already rejected the current token, so force a refresh.
	expired := *tok
	expired.Expiry = time.Now().Add(-time.Minute)

	start := time.Now()
	fresh, err := c.oauth.TokenSource(c.httpContext(ctx), &expired).Token()
	if err != nil {
		c.logger.Warn("token refresh failed", logging.Operation(op), logging.Duration(start), logging.Err(err))
		// Only a provider response means the grant is dead.
		var rerr *oauth2.RetrieveError
		if !errors.As(err, &rerr) {
			return "", service.NetworkError(op, err)
		}
		return "", service.AuthError(op, err)
	}
	if err := c.creds.SaveToken(ctx, fresh); err != nil {
		return "", fmt.Errorf("save refreshed token: %w", err)
	}
	c.logger.Debug("token refreshed", logging.Operation(op), logging.Duration(start))
	return fresh.AccessToken, nil
}

// SignOut revokes the grant on a best-effort basis and clears the stored
// credential, default list handle and cached tasks.
func (c *Client) SignOut(ctx context.Context) error {
	if tok, err := c.creds.Token(ctx); err == nil {
		if err := c.revoke(ctx, tok); err != nil {
			c.logger.Warn("token revocation failed", logging.Err(err))
		}
	}

	var errs []error
	if err := c.creds.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.kv.Delete(ctx, kvstore.KeyDefaultListID); err != nil {
		errs = append(errs, err)
	}
	if err := c.cache.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear local state: %w", err)
	}
	c.logger.Info("signed out")
	return nil
}

func (c *Client) revoke(ctx context.Context, tok *oauth2.Token) error {
	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}
	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned %s", resp.Status)
	}
	return nil
}

// Profile returns the stored profile of the signed-in user.
func (c *Client) Profile(ctx context.Context) (service.Profile, bool, error) {
	if _, err := c.creds.Token(ctx); err != nil {
		return service.Profile{}, false, nil
	}
	return c.creds.Profile(ctx)
}

// findAvailablePort tries ports starting from the configured start port.
func (c *Client) findAvailablePort() (int, net.Listener, error) {
	attempts := max(c.portAttempts, 1)
	for i := 0; i < attempts; i++ {
		port := c.startPort
		if port != 0 {
			port += i
		}
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return listener.Addr().(*net.TCPAddr).Port, listener, nil
		}
	}
	return 0, nil, errors.New("could not bind to local port for OAuth callback")
}
