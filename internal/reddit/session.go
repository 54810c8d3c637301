// Package reddit implements the feed session: script-app authentication,
// a restartable comment stream, and the reply sink with transient error
// classification.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/inklinks/inkbot/internal/bot"
)

const (
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultAPIURL   = "https://oauth.reddit.com"
)

// Credentials are the script-app secrets for the password grant.
type Credentials struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// Config controls one session.
type Config struct {
	Credentials

	// PollInterval is how long the stream sleeps between empty pages.
	PollInterval time.Duration

	// PageLimit caps how many comments one listing request returns.
	PageLimit int

	// TokenURL and APIURL override the endpoints, mainly for tests.
	TokenURL string
	APIURL   string
}

// Session is an authenticated connection to Reddit.
type Session struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// userAgentTransport sets the mandatory User-Agent on every request; Reddit
// heavily throttles clients using a default library agent.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(clone)
}

// Open authenticates a session using the OAuth2 password grant and verifies
// the logged-in identity.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = withDefaults(cfg)

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}

	// The token request itself must carry our User-Agent as well.
	base := &http.Client{
		Transport: &userAgentTransport{agent: cfg.UserAgent},
		Timeout:   30 * time.Second,
	}
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, base)

	token, err := conf.PasswordCredentialsToken(authCtx, cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("reddit authentication: %w", err)
	}

	s := &Session{
		cfg: cfg,
		http: &http.Client{
			Transport: &userAgentTransport{
				agent: cfg.UserAgent,
				next:  &oauth2.Transport{Source: conf.TokenSource(authCtx, token)},
			},
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	me, err := s.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify identity: %w", err)
	}
	logger.Info("authenticated with reddit", zap.String("user", me))
	return s, nil
}

func withDefaults(cfg Config) Config {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 100
	}
	return cfg
}

// Me returns the username of the authenticated account.
func (s *Session) Me(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIURL+"/api/v1/me", nil)
	if err != nil {
		return "", fmt.Errorf("build identity request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch identity: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity check returned %d", resp.StatusCode)
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode identity: %w", err)
	}
	return payload.Name, nil
}

// Stream opens a comment stream for the subreddit. A new stream can always
// be opened after reauthentication; there is no resume-from-offset guarantee
// and gaps during downtime are acceptable.
func (s *Session) Stream(_ context.Context, subreddit string) (bot.CommentStream, error) {
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	return &commentStream{session: s, subreddit: subreddit}, nil
}

// Reply posts body as a reply to commentID and returns the new comment's id.
func (s *Session) Reply(ctx context.Context, commentID, body string) (string, error) {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t1_" + commentID},
		"text":     {body},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.APIURL+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		// Network-level trouble is worth retrying.
		return "", bot.Transient(fmt.Errorf("post reply: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", bot.Transient(fmt.Errorf("reply returned %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reply returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", bot.Transient(fmt.Errorf("read reply response: %w", err))
	}
	return parseReplyResponse(raw)
}

type replyResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			Things []struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

// parseReplyResponse extracts the posted comment id, mapping Reddit's
// in-band error list to the transient/non-transient taxonomy. RATELIMIT is
// the "posting too much" signal and resolves itself after a delay.
func parseReplyResponse(raw []byte) (string, error) {
	var parsed replyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode reply response: %w", err)
	}
	for _, apiErr := range parsed.JSON.Errors {
		if len(apiErr) == 0 {
			continue
		}
		if apiErr[0] == "RATELIMIT" {
			return "", bot.Transient(fmt.Errorf("reddit rate limit: %s", strings.Join(apiErr, " ")))
		}
		return "", fmt.Errorf("reddit rejected reply: %s", strings.Join(apiErr, " "))
	}
	things := parsed.JSON.Data.Things
	if len(things) == 0 || things[0].Data.ID == "" {
		return "", fmt.Errorf("reply response missing comment id")
	}
	return things[0].Data.ID, nil
}

// Close releases the session. The HTTP client holds no persistent
// connection state worth tearing down beyond idle connections.
func (s *Session) Close() error {
	s.http.CloseIdleConnections()
	return nil
}
