package model

// Recommendation option types.
const (
	OptionDeepen = "deepen"
	OptionNext   = "next"
)

// ValidOptionTypes are the two recommendation categories a model may emit.
var ValidOptionTypes = map[string]bool{
	OptionDeepen: true,
	OptionNext:   true,
}

// RecommendationOption is a typed suggestion extracted from model output.
// deepen goes further into the current material, next moves to a related source.
type RecommendationOption struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Describe string `json:"describe"`
}

// StreamDelta is one incremental fragment of streamed model output.
// Either field may be empty; both may be set on the same fragment.
type StreamDelta struct {
	Content   string `json:"content,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Empty reports whether the delta carries no text at all.
func (d StreamDelta) Empty() bool {
	return d.Content == "" && d.Reasoning == ""
}
