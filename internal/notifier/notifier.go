// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package notifier delivers a JSON payload to one already-open bidirectional
// session through the channel-management API.
//
// Delivery is at-most-once and best-effort. There is no queue and no retry:
// a grant is short-lived and single-use, so holding it for a session that is
// no longer listening has no value.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// ErrDelivery indicates the payload could not be handed to the session,
// either because the session is gone or the management API failed.
var ErrDelivery = errors.New("channel delivery failed")

// ManagementClient is the single channel-management operation the notifier
// needs.
type ManagementClient interface {
	// PostToConnection posts data to an established connection.
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// managementClient implements ManagementClient using the AWS SDK v2.
type managementClient struct {
	client *apigatewaymanagementapi.Client
}

// NewManagementClient creates a ManagementClient addressing the given
// channel-management endpoint.
func NewManagementClient(cfg aws.Config, endpoint string) ManagementClient {
	return &managementClient{
		client: apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		}),
	}
}

// PostToConnection implements [ManagementClient.PostToConnection].
func (c *managementClient) PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	return c.client.PostToConnection(ctx, params, optFns...)
}

// Notifier pushes payloads to open sessions.
type Notifier struct {
	client ManagementClient
}

// New creates a Notifier on top of the given management client.
func New(client ManagementClient) *Notifier {
	return &Notifier{client: client}
}

// Deliver serializes payload as JSON and posts it to the session identified
// by connectionID. Exactly one attempt is made.
func (n *Notifier) Deliver(ctx context.Context, connectionID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = n.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         data,
	})
	if err != nil {
		var gone *types.GoneException
		if errors.As(err, &gone) {
			return fmt.Errorf("%w: session already closed", ErrDelivery)
		}
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
