// Package search runs web searches through a hosted tool and flattens the
// provider's variable response shapes into a list of records.
package search

import (
	"github.com/tidwall/gjson"

	"casestudy/internal/infra/logging"
)

// Normalize extracts search records from a raw tool response. It never fails
// and never returns nil.
func Normalize(raw []byte) []map[string]any {
	records, _ := normalize(raw)
	return records
}

// normalize also returns the selected output node so callers can echo it
// back as the raw payload.
func normalize(raw []byte) ([]map[string]any, any) {
	if !gjson.ValidBytes(raw) {
		logging.Warn("Search response is not valid JSON", "bytes", len(raw))
		return []map[string]any{}, nil
	}
	doc := gjson.ParseBytes(raw)

	out := doc.Get("output")
	switch {
	case !truthy(out):
		out = doc
	case out.IsArray():
		if first := out.Get("0"); truthy(first) {
			out = first
		}
	}

	if v := out.Get("value"); v.Type == gjson.String {
		if !gjson.Valid(v.Str) {
			logging.Warn("Failed to parse output.value as JSON", "value_len", len(v.Str))
			return []map[string]any{}, out.Value()
		}
		parsed := gjson.Parse(v.Str)
		if parsed.IsArray() {
			return records(parsed), out.Value()
		}
		if res := parsed.Get("results"); res.IsArray() {
			return records(res), out.Value()
		}
		return []map[string]any{}, out.Value()
	}

	if res := out.Get("results"); res.IsArray() {
		return records(res), out.Value()
	}
	return []map[string]any{}, out.Value()
}

func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	}
	return r.Exists()
}

// records keeps the object entries of arr; scalars have no fields to show.
func records(arr gjson.Result) []map[string]any {
	out := []map[string]any{}
	arr.ForEach(func(_, item gjson.Result) bool {
		if m, ok := item.Value().(map[string]any); ok {
			out = append(out, m)
		}
		return true
	})
	return out
}
