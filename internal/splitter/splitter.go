// Package splitter separates streamed model output into narrative text and
// line-record recommendation options.
//
// Split is a pure function of its input: it re-reads the whole buffer on
// every call, so calling it on each growing prefix of a stream and then on
// the final buffer gives the same final result as a single call.
package splitter

import (
	"encoding/json"
	"strings"

	"github.com/rcliao/nextstep/internal/model"
)

// MaxOptions caps the number of options returned by Split.
const MaxOptions = 6

// Result is the parsed form of a model reply.
type Result struct {
	Main    string                       `json:"main"`
	Options []model.RecommendationOption `json:"options"`
}

// Deepen returns the deepen options in source order.
func (r Result) Deepen() []model.RecommendationOption {
	return r.filter(model.OptionDeepen)
}

// Next returns the next options in source order.
func (r Result) Next() []model.RecommendationOption {
	return r.filter(model.OptionNext)
}

func (r Result) filter(typ string) []model.RecommendationOption {
	var out []model.RecommendationOption
	for _, o := range r.Options {
		if o.Type == typ {
			out = append(out, o)
		}
	}
	return out
}

// Split parses buffer line by line. A non-blank line whose entire content is
// a JSON object with a valid type and non-empty content/describe strings
// becomes an option; every other line, blank lines included, stays in Main.
// Every line is evaluated, so a malformed record never hides later ones.
func Split(buffer string) Result {
	lines := strings.Split(buffer, "\n")
	kept := make([]string, 0, len(lines))
	options := []model.RecommendationOption{}

	for _, line := range lines {
		opt, ok := parseOption(line)
		if !ok {
			kept = append(kept, line)
			continue
		}
		if len(options) < MaxOptions {
			options = append(options, opt)
		}
	}

	return Result{
		Main:    strings.TrimSpace(strings.Join(kept, "\n")),
		Options: options,
	}
}

// parseOption reports whether line is a single qualifying option record.
func parseOption(line string) (model.RecommendationOption, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return model.RecommendationOption{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return model.RecommendationOption{}, false
	}

	typ, ok := stringField(fields, "type")
	if !ok || !model.ValidOptionTypes[typ] {
		return model.RecommendationOption{}, false
	}
	content, ok := stringField(fields, "content")
	if !ok || strings.TrimSpace(content) == "" {
		return model.RecommendationOption{}, false
	}
	describe, ok := stringField(fields, "describe")
	if !ok || strings.TrimSpace(describe) == "" {
		return model.RecommendationOption{}, false
	}

	return model.RecommendationOption{Type: typ, Content: content, Describe: describe}, true
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
