// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/stretchr/testify/require"
)

type fakeManagementClient struct {
	calls []*apigatewaymanagementapi.PostToConnectionInput
	err   error
}

func (f *fakeManagementClient) PostToConnection(_ context.Context, params *apigatewaymanagementapi.PostToConnectionInput, _ ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func TestDeliver(t *testing.T) {
	fake := &fakeManagementClient{}
	n := New(fake)

	payload := map[string]string{"uploadPath": "reports/2024-01-01T00-00-00-alice.tar.gz"}
	require.NoError(t, n.Deliver(t.Context(), "conn-42", payload))

	require.Len(t, fake.calls, 1)
	require.Equal(t, "conn-42", aws.ToString(fake.calls[0].ConnectionId))
	require.JSONEq(t, `{"uploadPath":"reports/2024-01-01T00-00-00-alice.tar.gz"}`, string(fake.calls[0].Data))
}

func TestDeliverSessionGone(t *testing.T) {
	fake := &fakeManagementClient{err: &types.GoneException{}}
	n := New(fake)

	err := n.Deliver(t.Context(), "conn-42", map[string]string{})
	require.ErrorIs(t, err, ErrDelivery)
	// One attempt, no retry.
	require.Len(t, fake.calls, 1)
}

func TestDeliverManagementFailure(t *testing.T) {
	fake := &fakeManagementClient{err: errors.New("dial tcp: connection refused")}
	n := New(fake)

	err := n.Deliver(t.Context(), "conn-42", map[string]string{})
	require.ErrorIs(t, err, ErrDelivery)
}

func TestDeliverUnserializablePayload(t *testing.T) {
	fake := &fakeManagementClient{}
	n := New(fake)

	err := n.Deliver(t.Context(), "conn-42", func() {})
	require.Error(t, err)
	require.Empty(t, fake.calls)
}
