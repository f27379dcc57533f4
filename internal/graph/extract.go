package graph

import (
	"encoding/json"
	"errors"

	"github.com/rcliao/nextstep/internal/model"
)

// ErrNoFragment is returned when a reply contains no decodable graph object.
var ErrNoFragment = errors.New("no concept graph found in reply")

// ExtractFragment finds the first top-level JSON object in text that decodes
// into a concept node with an id or a name. Surrounding prose and code
// fences are ignored.
func ExtractFragment(text string) (*model.ConceptNode, error) {
	for _, candidate := range jsonObjects(text) {
		var n model.ConceptNode
		if err := json.Unmarshal([]byte(candidate), &n); err != nil {
			continue
		}
		if n.ID == "" && n.Name == "" {
			continue
		}
		return &n, nil
	}
	return nil, ErrNoFragment
}

// jsonObjects returns the balanced top-level {...} spans of s, skipping
// braces inside JSON strings. ASCII delimiters never occur inside UTF-8
// multi-byte sequences, so a byte scan is safe.
func jsonObjects(s string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}
