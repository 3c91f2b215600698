// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package vend implements the credential-vending request handler: the OAuth
// callback that resolves an identity, mints a single-path upload grant and
// pushes it to the session that is waiting for it.
package vend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tracevend/tracevend/internal/identity"
	"github.com/tracevend/tracevend/internal/issuer"
	"github.com/tracevend/tracevend/internal/policy"
)

// Stage labels for logs and metrics, one per step of the vend flow.
const (
	stageValidate = "validate"
	stageExchange = "exchange"
	stageResolve  = "resolve"
	stageIssue    = "issue"
	stageNotify   = "notify"
	outcomeOK     = "ok"
)

// IdentityResolver resolves the identity behind an authorization code.
type IdentityResolver interface {
	Resolve(ctx context.Context, code, state string) (*identity.Identity, error)
}

// CredentialIssuer mints short-lived credentials constrained by a policy.
type CredentialIssuer interface {
	Issue(ctx context.Context, principalName, policyJSON string) (*issuer.Credentials, error)
}

// ChannelNotifier delivers a payload to one open session.
type ChannelNotifier interface {
	Deliver(ctx context.Context, connectionID string, payload any) error
}

// Grant is the payload pushed to the waiting session. Field names are the
// wire contract with the CLI.
type Grant struct {
	UploadPath      string `json:"uploadPath"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
	SessionToken    string `json:"sessionToken"`
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Identity IdentityResolver
	Issuer   CredentialIssuer
	Notifier ChannelNotifier
	// Bucket is the destination bucket every grant scopes into.
	Bucket  string
	Logger  *slog.Logger
	Metrics *Metrics
	// Now overrides the clock. Used in tests.
	Now func() time.Time
}

// Handler is the orchestrator for the vend flow. It is stateless: every
// invocation is independent and nothing survives past the response.
//
// The anti-forgery state token is used purely as the address of the waiting
// channel. The originating system does not bind it to the identity that
// eventually authenticates; that trust boundary is accepted here, not
// remediated.
type Handler struct {
	identity IdentityResolver
	issuer   CredentialIssuer
	notifier ChannelNotifier
	bucket   string
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewHandler creates a Handler from the given configuration.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		identity: cfg.Identity,
		issuer:   cfg.Issuer,
		notifier: cfg.Notifier,
		bucket:   cfg.Bucket,
		logger:   logger,
		metrics:  cfg.Metrics,
		now:      now,
	}
}

// ServeHTTP runs the one-shot state machine:
// validate, exchange, derive, issue, notify, acknowledge.
// Each step is strictly sequential and no step is retried. Failures map to a
// generic response; detail goes to logs only.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	logger := h.logger.With(slog.String("request_id", uuid.NewString()))

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		logger.Info("rejecting callback with missing parameters",
			slog.Bool("has_code", code != ""), slog.Bool("has_state", state != ""))
		h.record(stageValidate)
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	logger.Debug("handling authorization callback", slog.String("channel", state))

	ctx := r.Context()
	id, err := h.identity.Resolve(ctx, code, state)
	if err != nil {
		stage := stageExchange
		if errors.Is(err, identity.ErrNoLogin) {
			stage = stageResolve
		}
		h.serverError(w, logger, stage, err)
		return
	}
	logger = logger.With(slog.String("login", id.Login))

	uploadPath, doc := policy.Generate(h.bucket, id.Login, h.now())
	policyJSON, err := doc.JSON()
	if err != nil {
		h.serverError(w, logger, stageIssue, err)
		return
	}

	creds, err := h.issuer.Issue(ctx, id.Login, policyJSON)
	if err != nil {
		// The user authenticated but gets no grant; the CLI times out on
		// its open channel. Accepted failure mode, nothing to compensate.
		h.serverError(w, logger, stageIssue, err)
		return
	}

	grant := &Grant{
		UploadPath:      uploadPath,
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}
	if err := h.notifier.Deliver(ctx, state, grant); err != nil {
		// The minted credentials are discarded. They are scoped to a single
		// object and expire on their own, so no revocation is attempted.
		h.serverError(w, logger, stageNotify, err)
		return
	}

	logger.Info("grant delivered",
		slog.String("channel", state),
		slog.String("upload_path", uploadPath))
	h.record(outcomeOK)

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Hello %s, your upload has been authorized and will begin automatically.", id.DisplayName())
}

// serverError logs the failing stage with full detail and answers with a
// generic body carrying none of it.
func (h *Handler) serverError(w http.ResponseWriter, logger *slog.Logger, stage string, err error) {
	logger.Error("vend flow failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	h.record(stage)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) record(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordCallback(outcome)
	}
}
