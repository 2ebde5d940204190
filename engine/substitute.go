package engine

import (
	"regexp"
	"strings"
)

// unquotedMarkerRe matches a string that is *exactly* a `##VAR:unquoted:name##`
// marker with nothing else around it — the mechanism by which typed JSON
// values (numbers, bools, nested objects) enter request bodies.
var unquotedMarkerRe = regexp.MustCompile(`^##VAR:unquoted:([^#]+)##$`)

// markerRe matches any `##VAR:<kind>:<name>##` occurrence, used for the
// in-place string-expansion pass. Only the "string" kind is expanded here;
// any other kind, including an "unquoted" marker embedded in a larger
// string, is left as literal text.
var markerRe = regexp.MustCompile(`##VAR:([a-zA-Z]+):([^#]+)##`)

// pathRe matches `{{path}}` occurrences for in-place string expansion.
var pathRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Substitute recursively expands `{{path}}` and `##VAR:...##` markers in v
// against ctx. Maps have both their keys and values substituted; lists have
// every element substituted; other scalars pass through unchanged.
func Substitute(v Value, ctx Value) Value {
	switch v.Kind {
	case KindString:
		return substituteString(v.Str, ctx)
	case KindList:
		out := make([]Value, len(v.List))
		for i, e := range v.List {
			out[i] = Substitute(e, ctx)
		}
		return Value{Kind: KindList, List: out}
	case KindMap:
		out := NewOrderedMap()
		for _, k := range v.Map.Keys() {
			child, _ := v.Map.Get(k)
			newKey := substituteString(k, ctx).AsString()
			out.Set(newKey, Substitute(*child, ctx))
		}
		return Value{Kind: KindMap, Map: out}
	default:
		return v
	}
}

func substituteString(s string, ctx Value) Value {
	// Whole-string unquoted marker: return the raw resolved value, any type.
	if m := unquotedMarkerRe.FindStringSubmatch(s); m != nil {
		resolved := ResolvePath(ctx, strings.TrimSpace(m[1]))
		if resolved.IsMissing() {
			return Null
		}
		return resolved
	}

	expanded := expandMarkers(s, ctx)
	expanded = expandPaths(expanded, ctx)
	return String(expanded)
}

func expandMarkers(s string, ctx Value) string {
	return markerRe.ReplaceAllStringFunc(s, func(match string) string {
		groups := markerRe.FindStringSubmatch(match)
		kind, name := groups[1], groups[2]
		if kind != "string" {
			// Any kind other than "string" (an embedded unquoted marker or an
			// unknown kind): left as literal text.
			return match
		}
		resolved := ResolvePath(ctx, strings.TrimSpace(name))
		if resolved.IsMissing() {
			return ""
		}
		return resolved.AsString()
	})
}

func expandPaths(s string, ctx Value) string {
	return pathRe.ReplaceAllStringFunc(s, func(match string) string {
		groups := pathRe.FindStringSubmatch(match)
		path := strings.TrimSpace(groups[1])
		resolved := ResolvePath(ctx, path)
		if resolved.IsMissing() {
			return ""
		}
		return resolved.AsString()
	})
}
