/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package urlbuilder composes build server URLs from a base URI and an
// ordered list of query parameters.
package urlbuilder

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Param is a single query parameter. A nil Value (including a typed nil
// pointer, map or slice) or an empty string omits the parameter.
type Param struct {
	Name  string
	Value any
}

// P is shorthand for constructing a Param.
func P(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Build returns base with params appended to its query, in the order given.
// Scalars are stringified directly, composite values (maps, slices, arrays,
// structs) are encoded as JSON. Setting a name that is already present in
// base replaces it in place.
func Build(base string, params ...Param) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base url %q: %w", base, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("base url %q is not absolute", base)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	pairs := splitQuery(u.RawQuery)
	for _, p := range params {
		val, ok, err := stringify(p.Value)
		if err != nil {
			return "", fmt.Errorf("encoding query parameter %q: %w", p.Name, err)
		}
		if !ok {
			continue
		}
		pairs = set(pairs, p.Name, val)
	}

	var sb strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(kv[0]))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(kv[1]))
	}
	u.RawQuery = sb.String()
	return u.String(), nil
}

func splitQuery(raw string) [][2]string {
	if raw == "" {
		return nil
	}
	var out [][2]string
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		out = append(out, [2]string{k, v})
	}
	return out
}

func set(pairs [][2]string, name, val string) [][2]string {
	found := false
	out := pairs[:0]
	for _, kv := range pairs {
		if kv[0] != name {
			out = append(out, kv)
			continue
		}
		if !found {
			out = append(out, [2]string{name, val})
			found = true
		}
	}
	if !found {
		out = append(out, [2]string{name, val})
	}
	return out
}

func stringify(v any) (string, bool, error) {
	if v == nil {
		return "", false, nil
	}
	switch x := v.(type) {
	case string:
		return x, x != "", nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", false, nil
		}
		s := x.String()
		return s, s != "", nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false, nil
		}
		return stringify(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true, nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true, nil
	case reflect.String:
		s := rv.String()
		return s, s != "", nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true, nil
	case reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "", false, nil
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}
