// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package policy builds the per-grant upload path and the least-privilege
// access policy that scopes a federated token to exactly that path.
package policy

import (
	"encoding/json"
	"fmt"
	"time"
)

// pathTimeFormat is a sortable, second-granularity timestamp with no
// characters that need escaping in an object key.
const pathTimeFormat = "2006-01-02T15-04-05"

// Document is an IAM policy document.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is a single IAM policy statement.
type Statement struct {
	Effect   string `json:"Effect"`
	Action   string `json:"Action"`
	Resource string `json:"Resource"`
}

// JSON renders the document as the JSON string the token service expects.
func (d Document) JSON() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal policy document: %w", err)
	}
	return string(b), nil
}

// UploadPath returns the object key one grant may write. The key combines a
// sortable timestamp with the login, so two grants collide only when the
// same user authorizes twice within the same wall-clock second. That window
// is accepted: the interactive flow makes back-to-back grants for one user
// rare, and a colliding grant scopes to the identical key anyway.
func UploadPath(login string, now time.Time) string {
	return fmt.Sprintf("reports/%s-%s.tar.gz", now.UTC().Format(pathTimeFormat), login)
}

// Generate returns the upload path for one grant together with a policy
// document allowing s3:PutObject on that single object and nothing else.
// It is a pure function: identical inputs produce identical outputs.
func Generate(bucket, login string, now time.Time) (string, Document) {
	path := UploadPath(login, now)
	doc := Document{
		Version: "2012-10-17",
		Statement: []Statement{
			{
				Effect:   "Allow",
				Action:   "s3:PutObject",
				Resource: fmt.Sprintf("arn:aws:s3:::%s/%s", bucket, path),
			},
		},
	}
	return path, doc
}
