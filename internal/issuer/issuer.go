// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package issuer mints short-lived federated credentials constrained by a
// pre-scoped policy document.
//
// The issuer deliberately performs a single attempt with no retry: the flow
// is interactive and the human retries by re-clicking the authorization
// link, which allocates a fresh channel and a fresh grant.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
)

// Provider-imposed bounds on the federated token validity window.
const (
	minDurationSeconds = 900
	maxDurationSeconds = 43200
)

var (
	// ErrPolicyRejected indicates the token service rejected the request,
	// typically for a malformed or overly broad policy.
	ErrPolicyRejected = errors.New("token service rejected the request")
	// ErrUnavailable indicates the token service could not be reached.
	ErrUnavailable = errors.New("token service unreachable")
	// ErrDurationOutOfRange indicates the configured validity window is
	// outside the provider-imposed bounds.
	ErrDurationOutOfRange = fmt.Errorf("duration must be between %d and %d seconds", minDurationSeconds, maxDurationSeconds)
)

// STSClient is the single STS operation the issuer needs.
type STSClient interface {
	// GetFederationToken mints temporary credentials for a federated user.
	GetFederationToken(ctx context.Context, params *sts.GetFederationTokenInput, optFns ...func(*sts.Options)) (*sts.GetFederationTokenOutput, error)
}

// stsClient implements STSClient using the AWS SDK v2.
type stsClient struct {
	client *sts.Client
}

// NewSTSClient creates an STSClient with the given AWS config. The config
// should carry the separately-scoped base identity, never end-user
// credentials.
func NewSTSClient(cfg aws.Config) STSClient {
	return &stsClient{client: sts.NewFromConfig(cfg)}
}

// GetFederationToken implements [STSClient.GetFederationToken].
func (c *stsClient) GetFederationToken(ctx context.Context, params *sts.GetFederationTokenInput, optFns ...func(*sts.Options)) (*sts.GetFederationTokenOutput, error) {
	return c.client.GetFederationToken(ctx, params, optFns...)
}

// Credentials is one short-lived credential set. It is handed to exactly one
// channel and never persisted server-side.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Issuer mints credentials scoped by the caller-provided policy.
type Issuer struct {
	sts             STSClient
	policyARN       string
	durationSeconds int32
}

// New creates an Issuer. policyARN is the managed upload policy attached to
// every token in addition to the per-grant inline policy; the effective
// permissions are the intersection of the two.
func New(stsClient STSClient, policyARN string, durationSeconds int32) *Issuer {
	return &Issuer{sts: stsClient, policyARN: policyARN, durationSeconds: durationSeconds}
}

// Issue mints credentials for principalName constrained by policyJSON. The
// policy document is passed through unmodified; scoping it is the caller's
// job. A single attempt is made, with no retry.
func (i *Issuer) Issue(ctx context.Context, principalName, policyJSON string) (*Credentials, error) {
	if i.durationSeconds < minDurationSeconds || i.durationSeconds > maxDurationSeconds {
		return nil, ErrDurationOutOfRange
	}

	input := &sts.GetFederationTokenInput{
		Name:            aws.String(principalName),
		DurationSeconds: aws.Int32(i.durationSeconds),
		Policy:          aws.String(policyJSON),
	}
	if i.policyARN != "" {
		input.PolicyArns = []types.PolicyDescriptorType{{Arn: aws.String(i.policyARN)}}
	}

	out, err := i.sts.GetFederationToken(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %v", ErrPolicyRejected, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if out.Credentials == nil {
		return nil, fmt.Errorf("%w: response carries no credentials", ErrPolicyRejected)
	}

	creds := &Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
	}
	if out.Credentials.Expiration != nil {
		creds.Expiration = *out.Credentials.Expiration
	}
	return creds, nil
}
