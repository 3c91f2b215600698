// Copyright Tracevend Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package version holds the build version stamped in via -ldflags.
package version

// Version is the version of the build. This is set at build time.
var Version = "dev"
