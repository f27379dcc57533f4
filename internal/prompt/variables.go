package prompt

import (
	"strings"

	"github.com/rcliao/nextstep/internal/model"
)

// Context selects which template a render call uses.
type Context string

const (
	SmartRecommendation Context = "smartRecommendation"
	KnowledgeGraph      Context = "knowledgeGraph"
	ContentGeneration   Context = "contentGeneration"
)

// Language selects the template text language.
type Language string

const (
	Chinese Language = "zh"
	English Language = "en"
)

// DefaultLanguage is used when a caller does not pick one.
const DefaultLanguage = Chinese

// Mode selects which blocks of the smartRecommendation template are rendered.
type Mode string

const (
	ModeFull            Mode = "full"
	ModeContent         Mode = "content"
	ModeRecommendations Mode = "recommendations"
)

// Step describes one instruction step of the recommendation template.
type Step struct {
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Criteria    string `json:"criteria,omitempty" yaml:"criteria,omitempty"`
}

// Steps holds the three steps of the recommendation template: the narrative
// focus step and the two recommendation categories.
type Steps struct {
	Content Step `json:"content,omitempty" yaml:"content,omitempty"`
	Deepen  Step `json:"deepen,omitempty" yaml:"deepen,omitempty"`
	Next    Step `json:"next,omitempty" yaml:"next,omitempty"`
}

// Variables is the per-call input to a template.
type Variables struct {
	Mode           Mode
	Goal           string
	Steps          Steps
	ConceptContext *model.ConceptRecommendationContext
}

func (s Step) withDefaults(d Step) Step {
	return Step{
		Title:       orDefault(s.Title, d.Title),
		Description: orDefault(s.Description, d.Description),
		Criteria:    orDefault(s.Criteria, d.Criteria),
	}
}

func (s Steps) withDefaults(d Steps) Steps {
	return Steps{
		Content: s.Content.withDefaults(d.Content),
		Deepen:  s.Deepen.withDefaults(d.Deepen),
		Next:    s.Next.withDefaults(d.Next),
	}
}

func orDefault(v, d string) string {
	if strings.TrimSpace(v) == "" {
		return d
	}
	return v
}

var contextAliases = map[string]Context{
	"smartrecommendation":  SmartRecommendation,
	"smart_recommendation": SmartRecommendation,
	"nextstepchat":         SmartRecommendation,
	"next_step_chat":       SmartRecommendation,
	"knowledgegraph":       KnowledgeGraph,
	"knowledge_graph":      KnowledgeGraph,
	"mindmap":              KnowledgeGraph,
	"mind_map":             KnowledgeGraph,
	"conceptmap":           KnowledgeGraph,
	"contentgeneration":    ContentGeneration,
	"content_generation":   ContentGeneration,
	"deepread":             ContentGeneration,
	"deep_read":            ContentGeneration,
}

// ParseContext normalizes a context name, accepting legacy aliases.
// Unknown names are returned as-is so Render can report them.
func ParseContext(s string) Context {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := contextAliases[key]; ok {
		return c
	}
	return Context(strings.TrimSpace(s))
}

// ParseLanguage normalizes a language tag such as "zh-CN" or "EN".
func ParseLanguage(s string) Language {
	key := strings.ToLower(strings.TrimSpace(s))
	switch {
	case key == "":
		return DefaultLanguage
	case strings.HasPrefix(key, "zh"):
		return Chinese
	case strings.HasPrefix(key, "en"):
		return English
	}
	return Language(key)
}

// ParseMode normalizes a mode name. Anything unrecognized renders as full.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeContent:
		return ModeContent
	case ModeRecommendations:
		return ModeRecommendations
	}
	return ModeFull
}
