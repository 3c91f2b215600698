// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package identity

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
)

// auditTransport stamps the distinguishing User-Agent on every outbound
// identity-provider call and, at debug level, logs the wire images of the
// request and response. Bodies are excluded from the dumps so tokens and
// client secrets never land in logs.
type auditTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

func (t *auditTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)

	debug := t.logger.Enabled(req.Context(), slog.LevelDebug)
	if debug {
		if dump, err := httputil.DumpRequestOut(req, false); err == nil {
			t.logger.Debug("identity provider request", slog.String("dump", string(dump)))
		}
	}

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if debug {
		if dump, err := httputil.DumpResponse(resp, false); err == nil {
			t.logger.Debug("identity provider response", slog.String("dump", string(dump)))
		}
	}
	return resp, nil
}
