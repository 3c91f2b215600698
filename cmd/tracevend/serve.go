// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tracevend/tracevend/internal/config"
	"github.com/tracevend/tracevend/internal/identity"
	"github.com/tracevend/tracevend/internal/issuer"
	"github.com/tracevend/tracevend/internal/notifier"
	"github.com/tracevend/tracevend/internal/vend"
	"github.com/tracevend/tracevend/internal/version"
)

type serveFn func(ctx context.Context, c cmdServe, stderr io.Writer) error

// serve wires the components together and runs the HTTP server until the
// context is cancelled.
func serve(ctx context.Context, c cmdServe, stderr io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("failed to unmarshal log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// The base identity for STS comes from its own environment variables so
	// it can never be confused with ambient instance credentials.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.STSAccessKeyID, cfg.STSSecretAccessKey, ""),
		),
		// Single attempt, fail fast. The human retries the whole flow.
		awsconfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return fmt.Errorf("load AWS configuration: %w", err)
	}

	identityClient := identity.NewClient(identity.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		UserAgent:    "tracevend/" + version.Version,
		Logger:       logger,
	})

	reg := prometheus.NewRegistry()
	handler := vend.NewHandler(vend.HandlerConfig{
		Identity: identityClient,
		Issuer:   issuer.New(issuer.NewSTSClient(awsCfg), cfg.UploadPolicyARN, cfg.GrantDurationSeconds),
		Notifier: notifier.New(notifier.NewManagementClient(awsCfg, cfg.ChannelEndpoint)),
		Bucket:   cfg.UploadBucket,
		Logger:   logger,
		Metrics:  vend.NewMetrics(reg),
	})

	return vend.NewServer(c.Addr, handler, reg, logger).Serve(ctx)
}
