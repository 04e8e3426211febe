package authapi

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

const defaultDetailExpr = "detail"

// detailExtractor pulls a displayable reason out of an API error body.
// The API answers {"detail": "..."} for handled errors and
// {"detail": [{"msg": "...", ...}]} for request validation failures.
type detailExtractor struct {
	expr     string
	compiled jmespath.JMESPath
}

func newDetailExtractor(expr string) (detailExtractor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = defaultDetailExpr
	}
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		return detailExtractor{}, fmt.Errorf("compile error detail expression %q: %w", expr, err)
	}
	return detailExtractor{expr: expr, compiled: compiled}, nil
}

// extract returns "" when the body holds no usable reason.
func (d detailExtractor) extract(body []byte) string {
	if len(body) == 0 || d.compiled == nil {
		return ""
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}

	result, err := d.compiled.Search(doc)
	if err != nil {
		return ""
	}
	return reasonFrom(result)
}

func reasonFrom(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		msgs := make([]string, 0, len(t))
		for _, item := range t {
			if msg := reasonFrom(item); msg != "" {
				msgs = append(msgs, msg)
			}
		}
		return strings.Join(msgs, "; ")
	case map[string]any:
		if msg, ok := t["msg"]; ok {
			return reasonFrom(msg)
		}
		if msg, ok := t["message"]; ok {
			return reasonFrom(msg)
		}
	}
	return ""
}
