// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package identity exchanges a one-time authorization code for the minimal
// identity profile of the user who authorized the upload.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"
	oauth2github "golang.org/x/oauth2/github"
)

var (
	// ErrUpstream indicates the identity provider was unreachable or
	// rejected the code exchange.
	ErrUpstream = errors.New("identity provider request failed")
	// ErrNoLogin indicates the exchange succeeded but the profile carries
	// no usable login.
	ErrNoLogin = errors.New("identity profile has no login")
)

// Identity is the minimal profile resolved for one request. It lives for
// the duration of a single invocation and is never stored.
type Identity struct {
	// Login is the stable username the grant is issued for.
	Login string
	// Name is the display name used in the acknowledgment body. May be empty.
	Name string
}

// DisplayName returns the name to greet the user with, falling back to the
// login when the profile has no display name set.
func (i *Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Login
}

// Config configures a Client.
type Config struct {
	// ClientID and ClientSecret identify the OAuth application.
	ClientID     string
	ClientSecret string
	// UserAgent is stamped on every outbound call for provider-side auditing.
	UserAgent string
	// Endpoint overrides the provider OAuth endpoint. Used in tests.
	Endpoint *oauth2.Endpoint
	// APIBaseURL overrides the provider API base URL. Used in tests.
	APIBaseURL string
	Logger     *slog.Logger
}

// Client resolves identities against GitHub.
type Client struct {
	conf       *oauth2.Config
	apiBaseURL string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) *Client {
	endpoint := oauth2github.Endpoint
	// GitHub's token endpoint wants the client credentials in the form body.
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		},
		apiBaseURL: cfg.APIBaseURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Transport: &auditTransport{userAgent: cfg.UserAgent, logger: logger}},
		logger:     logger,
	}
}

// Resolve exchanges the authorization code for a token and fetches the
// profile of the user it belongs to. The anti-forgery state is round-tripped
// on the exchange so the provider can correlate the callback.
func (c *Client) Resolve(ctx context.Context, code, state string) (*Identity, error) {
	// All oauth2 plumbing below picks the audited client out of the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.conf.Exchange(ctx, code, oauth2.SetAuthURLParam("state", state))
	if err != nil {
		return nil, fmt.Errorf("%w: exchange authorization code: %v", ErrUpstream, err)
	}

	gh := github.NewClient(oauth2.NewClient(ctx, c.conf.TokenSource(ctx, token)))
	if c.apiBaseURL != "" {
		gh, err = gh.WithEnterpriseURLs(c.apiBaseURL, c.apiBaseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: configure API base URL: %v", ErrUpstream, err)
		}
	}

	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch user profile: %v", ErrUpstream, err)
	}
	login := strings.TrimSpace(user.GetLogin())
	if login == "" {
		return nil, ErrNoLogin
	}
	return &Identity{Login: login, Name: strings.TrimSpace(user.GetName())}, nil
}
