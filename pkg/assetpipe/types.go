/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package assetpipe

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// AssetType partitions all client state. The two types never interact.
type AssetType string

const (
	JS  AssetType = "js"
	CSS AssetType = "css"
)

// AssetTypes lists the supported types in a fixed order.
func AssetTypes() []AssetType {
	return []AssetType{JS, CSS}
}

// ParseAssetType validates s as an AssetType.
func ParseAssetType(s string) (AssetType, error) {
	switch t := AssetType(s); t {
	case JS, CSS:
		return t, nil
	default:
		return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("%q is not one of js, css", s)}
	}
}

// Entrypoints are the files to publish, per type.
type Entrypoints map[AssetType][]string

// Instructions are the ordered tags to bundle together, per type.
type Instructions map[AssetType][]string

// ValidationError is returned, before any network activity, when a caller
// passes malformed arguments.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SyncParseError is returned when the /sync/ response is not the expected
// JSON document.
type SyncParseError struct {
	Err error
}

func (e *SyncParseError) Error() string {
	return fmt.Sprintf("unable to parse response from asset server /sync/ endpoint: %v", e.Err)
}

func (e *SyncParseError) Unwrap() error { return e.Err }

var (
	fileRE = regexp.MustCompile(`^[a-zA-Z0-9._-]+\.(js|css)$`)
	tagRE  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

func validateTag(tag string) error {
	if tag == "" {
		return &ValidationError{Field: "tag", Reason: "a tag must be configured"}
	}
	if !tagRE.MatchString(tag) {
		return &ValidationError{Field: "tag", Reason: fmt.Sprintf("%q must be alphanumeric", tag)}
	}
	return nil
}

func validateFiles(t AssetType, files []string) error {
	for _, f := range files {
		if !fileRE.MatchString(filepath.Base(f)) {
			return &ValidationError{
				Field:  string(t),
				Reason: fmt.Sprintf("%q is not a .js or .css file name", f),
			}
		}
	}
	return nil
}

// present returns the types in m, in AssetTypes order, that have at least
// one entry. Unknown types are rejected.
func present(m map[AssetType][]string) ([]AssetType, error) {
	for t := range m {
		if _, err := ParseAssetType(string(t)); err != nil {
			return nil, err
		}
	}
	var out []AssetType
	for _, t := range AssetTypes() {
		if len(m[t]) > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}
