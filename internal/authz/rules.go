// Copyright (c) 2026 Nexora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package authz maps an inbound request's method and path to the permission it
requires.

The policy is an ordered linear rule table with first-match-wins semantics.
Rule order is security-relevant: reordering entries changes which permission
guards a path, so the table is defined in one place and walked top to bottom
with no indexing or sorting in between.
*/
package authz

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/taibuivan/nexora/internal/platform/sec"
)

// MethodAny matches every HTTP method in a rule.
const MethodAny = "*"

// Rule binds one HTTP method and path prefix to a required permission.
type Rule struct {
	// Method is an HTTP method, or [MethodAny].
	Method string

	// Prefix is a version-agnostic path prefix without a trailing slash:
	// "/api/posts" matches "/api/posts" itself and anything below it.
	Prefix string

	// Permission is required when this rule is the first match.
	Permission sec.Permission
}

// Ruleset is an ordered rule table. The zero value resolves everything to
// the method-class defaults.
type Ruleset struct {
	rules []Rule
}

// NewRuleset builds a resolver preserving the given rule order exactly.
func NewRuleset(rules []Rule) *Ruleset {
	return &Ruleset{rules: rules}
}

// Default is the gateway's production policy table.
//
// Order matters: the admin namespace must stay above the content rules so
// that e.g. DELETE /api/admin/posts requires admin, not merely delete.
func Default() *Ruleset {
	return NewRuleset([]Rule{
		{Method: MethodAny, Prefix: "/api/admin", Permission: sec.PermissionAdmin},
		{Method: http.MethodDelete, Prefix: "/api/posts", Permission: sec.PermissionDelete},
		{Method: http.MethodDelete, Prefix: "/api/comments", Permission: sec.PermissionDelete},
		{Method: http.MethodPatch, Prefix: "/api/agents", Permission: sec.PermissionWrite},
		{Method: http.MethodPost, Prefix: "/api/agents", Permission: sec.PermissionWrite},
	})
}

// versionSegment matches an API version path segment ("v1", "v12").
var versionSegment = regexp.MustCompile(`^v\d+$`)

// Resolve computes the permission required for a method + path pair.
//
// The first matching rule wins. With no match, safe methods (GET, HEAD,
// OPTIONS) default to read and every other method defaults to write.
func (ruleset *Ruleset) Resolve(method, path string) sec.Permission {
	normalized := normalize(path)

	for _, rule := range ruleset.rules {
		if rule.Method != MethodAny && rule.Method != method {
			continue
		}
		if matchPrefix(normalized, rule.Prefix) {
			return rule.Permission
		}
	}

	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return sec.PermissionRead
	default:
		return sec.PermissionWrite
	}
}

// normalize strips the API version segment so rules stay version-agnostic:
// "/api/v1/posts/123" and "/api/posts/123" resolve identically.
func normalize(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/")
	if trimmed == path {
		return path
	}

	first, rest, found := strings.Cut(trimmed, "/")
	if !versionSegment.MatchString(first) {
		return path
	}
	if !found {
		return "/api"
	}
	return "/api/" + rest
}

// matchPrefix reports whether path equals prefix or lies beneath it.
func matchPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
