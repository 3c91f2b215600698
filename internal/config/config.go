// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package config loads the service configuration from environment variables.
//
// All secrets live in the environment, never on disk and never in the
// request path. A missing required variable is a startup failure, not a
// per-request error.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the service needs at startup.
type Config struct {
	// GitHubClientID is the OAuth application client id sent on the code
	// exchange. It is public and has a default so local setups only need
	// the secret.
	GitHubClientID string `env:"GITHUB_CLIENT_ID" envDefault:"Iv1.c29a629771fe63c4"`
	// GitHubClientSecret is the OAuth application client secret.
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET,required,notEmpty"`

	// STSAccessKeyID and STSSecretAccessKey are the long-lived base identity
	// used for the GetFederationToken call. They are separately scoped and
	// are never handed to end users.
	STSAccessKeyID     string `env:"STS_AWS_ACCESS_KEY_ID,required,notEmpty"`
	STSSecretAccessKey string `env:"STS_AWS_SECRET_ACCESS_KEY,required,notEmpty"`
	// AWSRegion is the region for the STS and channel-management calls.
	AWSRegion string `env:"AWS_REGION" envDefault:"us-east-1"`

	// UploadBucket is the bucket every grant writes into.
	UploadBucket string `env:"UPLOAD_BUCKET" envDefault:"julialang-dumps"`
	// UploadPolicyARN is the managed policy attached to every federated
	// token in addition to the per-grant inline policy.
	UploadPolicyARN string `env:"UPLOAD_POLICY_ARN" envDefault:"arn:aws:iam::873569884612:policy/julialang-dumps-upload"`
	// GrantDurationSeconds bounds the validity window of issued credentials.
	GrantDurationSeconds int32 `env:"GRANT_DURATION_SECONDS" envDefault:"3600"`

	// ChannelEndpoint is the API Gateway management endpoint used to post
	// grants back to open WebSocket sessions.
	ChannelEndpoint string `env:"CHANNEL_MGMT_ENDPOINT,required,notEmpty"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
