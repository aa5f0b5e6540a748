/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package bundlehash computes the identity of a combined bundle from the
// ordered list of feed hashes it is built from.
package bundlehash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Identity returns the lowercase hex sha256 digest over hashes, written in
// order. The build server names bundle files with the same digest, so the
// order of hashes is significant: ["a", "b"] and ["b", "a"] name different
// bundles.
func Identity(hashes []string) string {
	h := sha256.New()
	for _, hash := range hashes {
		// hash.Hash never returns an error from Write.
		_, _ = io.WriteString(h, hash)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileName returns the bundle file name for hashes with the given extension,
// e.g. "{identity}.js".
func FileName(hashes []string, ext string) string {
	return Identity(hashes) + "." + ext
}
