package audit

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// normalize re-indents a JSON document. encoding/json sorts map keys, so
// decoding into any and encoding again yields a stable layout.
func normalize(b []byte) string {
	if len(bytes.TrimSpace(b)) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	return strings.TrimRight(buf.String(), "\n")
}

// UnifiedDiff returns a unified diff of two JSON documents.
func UnifiedDiff(before, after []byte) string {
	var a, b []string
	if s := normalize(before); s != "" {
		a = difflib.SplitLines(s + "\n")
	}
	if s := normalize(after); s != "" {
		b = difflib.SplitLines(s + "\n")
	}
	s, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "before",
		ToFile:   "after",
		Context:  3,
	})
	return s
}
