/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package urlbuilder

import (
	"net/url"
	"testing"
)

func TestBuild(t *testing.T) {
	var nilBool *bool
	yes := true

	tests := []struct {
		name   string
		base   string
		params []Param
		want   string
	}{{
		name: "no params",
		base: "http://server.com",
		want: "http://server.com/",
	}, {
		name:   "one param",
		base:   "http://server.com",
		params: []Param{P("prop", "value")},
		want:   "http://server.com/?prop=value",
	}, {
		name:   "insertion order",
		base:   "http://server.com",
		params: []Param{P("prop1", "value"), P("prop3", "value"), P("prop2", "value")},
		want:   "http://server.com/?prop1=value&prop3=value&prop2=value",
	}, {
		name:   "nil value",
		base:   "http://server.com",
		params: []Param{P("prop", nil)},
		want:   "http://server.com/",
	}, {
		name:   "typed nil pointer",
		base:   "http://server.com",
		params: []Param{P("prop", nilBool)},
		want:   "http://server.com/",
	}, {
		name:   "empty string",
		base:   "http://server.com",
		params: []Param{P("prop", "")},
		want:   "http://server.com/",
	}, {
		name:   "object serialized",
		base:   "http://server.com",
		params: []Param{P("prop", map[string]string{"key": "value"})},
		want:   "http://server.com/?prop=%7B%22key%22%3A%22value%22%7D",
	}, {
		name:   "array serialized",
		base:   "http://server.com",
		params: []Param{P("prop", []string{"one", "two"})},
		want:   "http://server.com/?prop=%5B%22one%22%2C%22two%22%5D",
	}, {
		name:   "number",
		base:   "http://server.com",
		params: []Param{P("prop", 1)},
		want:   "http://server.com/?prop=1",
	}, {
		name:   "boolean",
		base:   "http://server.com",
		params: []Param{P("prop", true)},
		want:   "http://server.com/?prop=true",
	}, {
		name:   "false is kept",
		base:   "http://server.com",
		params: []Param{P("minify", false)},
		want:   "http://server.com/?minify=false",
	}, {
		name:   "pointer dereferenced",
		base:   "http://server.com",
		params: []Param{P("minify", &yes)},
		want:   "http://server.com/?minify=true",
	}, {
		name:   "existing query replaced in place",
		base:   "http://server.com/publish-assets?a=1&b=2",
		params: []Param{P("a", "3"), P("c", "4")},
		want:   "http://server.com/publish-assets?a=3&b=2&c=4",
	}, {
		name:   "path kept",
		base:   "http://server.com/publish-instructions",
		params: []Param{P("sourceMaps", false)},
		want:   "http://server.com/publish-instructions?sourceMaps=false",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.base, tt.params...)
			if err != nil {
				t.Fatalf("Build() = %v", err)
			}
			if got != tt.want {
				t.Errorf("Build(): got = %q, want = %q", got, tt.want)
			}
		})
	}
}

func TestBuildComposite(t *testing.T) {
	got, err := Build("http://host", P("a", "1"), P("b", nil), P("c", map[string]int{"x": 1}))
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("url.Parse() = %v", err)
	}
	q := u.Query()
	if q.Get("a") != "1" {
		t.Errorf("a: got = %q, want = %q", q.Get("a"), "1")
	}
	if q.Has("b") {
		t.Errorf("b should be omitted, got %q", got)
	}
	if q.Get("c") != `{"x":1}` {
		t.Errorf("c: got = %q, want = %q", q.Get("c"), `{"x":1}`)
	}
}

func TestBuildErrors(t *testing.T) {
	for _, base := range []string{"", "/relative", "://bad"} {
		if _, err := Build(base); err == nil {
			t.Errorf("Build(%q) = nil, wanted error", base)
		}
	}
	if _, err := Build("http://host", P("fn", func() {})); err == nil {
		t.Error("Build() with unencodable value = nil, wanted error")
	}
}
