package tools

import (
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind discriminates how a tool is executed. The set is closed: the
// executor dispatches over it with one handler per kind.
type Kind string

const (
	KindMath    Kind = "math"
	KindEnglish Kind = "english"
	KindAPI     Kind = "api"
	KindPlanner Kind = "planner"
	KindCode    Kind = "code"
)

// Definition describes one callable tool: identity, the schema shown
// to the model, and the kind-specific configuration.
type Definition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Kind        Kind           `json:"kind"`
	Parameters  map[string]any `json:"parameters"`
	API         *APIConfig     `json:"api,omitempty"`
}

// APIConfig configures a generic HTTP-backed tool. GET serializes the
// arguments as query parameters, POST as a JSON body.
type APIConfig struct {
	URL    string `json:"url"`
	Method string `json:"method"` // "GET" or "POST"
}

// Result is the uniform execution outcome. Failures never escape the
// executor as errors or panics; they land in Err.
type Result struct {
	Output string
	Err    string
}

// Failed reports whether the execution produced an error.
func (r Result) Failed() bool {
	return r.Err != ""
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
var repeatedUnderscores = regexp.MustCompile(`_+`)

// SanitizeName restricts a user-provided tool name to the charset
// accepted by function-calling APIs. Runs of invalid characters
// collapse to a single underscore, edge underscores are trimmed, and
// an empty result falls back to "custom_api".
func SanitizeName(name string) string {
	s := invalidNameChars.ReplaceAllString(name, "_")
	s = repeatedUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "custom_api"
	}
	return s
}
