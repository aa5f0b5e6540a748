/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package bundlehash

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestIdentity(t *testing.T) {
	tests := []struct {
		name   string
		hashes []string
	}{{
		name:   "single",
		hashes: []string{"a"},
	}, {
		name:   "pair",
		hashes: []string{"a", "b"},
	}, {
		name: "feed hashes",
		hashes: []string{
			"ba74ef6a7e756dd1f55a205da347c20df59a0aef7b9a28b7512fd1ce64fe7ba9",
			"b67d80ae7bbaa31f4c997c9383902e5b94945d755d94cf263fc9c1c401e531a5",
		},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := Identity(tt.hashes), Identity(tt.hashes)
			if first != second {
				t.Errorf("Identity() not deterministic: %q != %q", first, second)
			}
			if len(first) != sha256.Size*2 {
				t.Errorf("Identity() length: got = %d, want = %d", len(first), sha256.Size*2)
			}
		})
	}
}

// Bundle names served by the asset build server for single published feeds.
func TestIdentityGolden(t *testing.T) {
	for _, c := range []struct{ hash, want string }{{
		hash: "ba74ef6a7e756dd1f55a205da347c20df59a0aef7b9a28b7512fd1ce64fe7ba9",
		want: "8c11af93300a6bde836b5ce1f306422602bbb53873598435e38026e1f0422649",
	}, {
		hash: "b67d80ae7bbaa31f4c997c9383902e5b94945d755d94cf263fc9c1c401e531a5",
		want: "c429df35a6bb8fe62b28df01f13b7d852f489fc22cf2de7b63cf8867c3ddaaef",
	}} {
		if got := Identity([]string{c.hash}); got != c.want {
			t.Errorf("Identity([%s]) = %q, want = %q", c.hash, got, c.want)
		}
	}
}

func TestIdentityOrderSensitive(t *testing.T) {
	if Identity([]string{"a", "b"}) == Identity([]string{"b", "a"}) {
		t.Error("Identity() ignored the order of hashes")
	}
}

func TestIdentityMatchesConcatenation(t *testing.T) {
	sum := sha256.Sum256([]byte("HASH1HASH2"))
	want := hex.EncodeToString(sum[:])
	if got := Identity([]string{"HASH1", "HASH2"}); got != want {
		t.Errorf("Identity() = %q, want = %q", got, want)
	}
}

func TestFileName(t *testing.T) {
	hashes := []string{"HASH1"}
	want := Identity(hashes) + ".css"
	if got := FileName(hashes, "css"); got != want {
		t.Errorf("FileName() = %q, want = %q", got, want)
	}
}
