// Package prompt renders the system prompts sent to the model.
//
// Templates are Go string constants with {{name}} placeholders, one set per
// language. Rendering is a pure function of (context, language, variables)
// and always fills every placeholder, falling back to built-in defaults.
package prompt

import (
	"sort"
	"strings"
)

// FormatMarker is the token the line-record output contract is announced
// with. Narrative-only renders never contain it.
const FormatMarker = "JSONL"

// Template renders one context in one language.
type Template struct {
	Context  Context
	Language Language
	Render   func(Variables) string
}

type key struct {
	ctx  Context
	lang Language
}

// Renderer is a stateless registry of templates keyed by context and language.
type Renderer struct {
	templates map[key]Template
}

// NewRenderer returns a Renderer with the built-in templates registered.
func NewRenderer() *Renderer {
	r := &Renderer{templates: map[key]Template{}}
	for lang, t := range textSets {
		r.Register(Template{Context: SmartRecommendation, Language: lang, Render: func(v Variables) string {
			return renderSmartRecommendation(t, v)
		}})
		r.Register(Template{Context: KnowledgeGraph, Language: lang, Render: func(Variables) string {
			return t.knowledgeGraph
		}})
		r.Register(Template{Context: ContentGeneration, Language: lang, Render: func(v Variables) string {
			return fill(t.contentGeneration, map[string]string{"goal": orDefault(v.Goal, t.goal)})
		}})
	}
	return r
}

// Register adds or replaces a template.
func (r *Renderer) Register(t Template) {
	r.templates[key{t.Context, t.Language}] = t
}

// Render produces the prompt for ctx in lang. An unregistered pair returns a
// *TemplateNotFoundError.
func (r *Renderer) Render(ctx Context, lang Language, vars Variables) (string, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	t, ok := r.templates[key{ctx, lang}]
	if !ok || t.Render == nil {
		return "", &TemplateNotFoundError{Context: ctx, Language: lang}
	}
	return strings.TrimSpace(t.Render(vars)), nil
}

// Contexts lists the registered contexts in name order.
func (r *Renderer) Contexts() []Context {
	seen := map[Context]bool{}
	var out []Context
	for k := range r.templates {
		if !seen[k.ctx] {
			seen[k.ctx] = true
			out = append(out, k.ctx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultRenderer = NewRenderer()

// Render renders with the built-in templates.
func Render(ctx Context, lang Language, vars Variables) (string, error) {
	return defaultRenderer.Render(ctx, lang, vars)
}

// Contexts lists the built-in contexts.
func Contexts() []Context {
	return defaultRenderer.Contexts()
}

func renderSmartRecommendation(t textSet, v Variables) string {
	steps := v.Steps.withDefaults(t.steps)
	values := map[string]string{
		"goal":                orDefault(v.Goal, t.goal),
		"content_title":       steps.Content.Title,
		"content_description": steps.Content.Description,
		"content_criteria":    steps.Content.Criteria,
		"deepen_title":        steps.Deepen.Title,
		"deepen_description":  steps.Deepen.Description,
		"deepen_criteria":     steps.Deepen.Criteria,
		"next_title":          steps.Next.Title,
		"next_description":    steps.Next.Description,
		"next_criteria":       steps.Next.Criteria,
	}

	var blocks []string
	switch v.Mode {
	case ModeContent:
		blocks = append(blocks, fill(t.focus, values))
	case ModeRecommendations:
		blocks = append(blocks, fill(t.recommendations, values))
		if b := avoidanceBlock(t, v); b != "" {
			blocks = append(blocks, b)
		}
		blocks = append(blocks, t.format)
	default:
		blocks = append(blocks, fill(t.focus, values), fill(t.recommendations, values))
		if b := avoidanceBlock(t, v); b != "" {
			blocks = append(blocks, b)
		}
		blocks = append(blocks, t.format)
	}

	for i := range blocks {
		blocks[i] = strings.TrimSpace(blocks[i])
	}
	return strings.Join(blocks, "\n\n")
}

func avoidanceBlock(t textSet, v Variables) string {
	cc := v.ConceptContext
	if !cc.HasAvoidance() {
		return ""
	}

	var b strings.Builder
	b.WriteString(t.avoidanceHeader)
	b.WriteString("\n")
	writeList(&b, t.mindMapLabel, cc.MindMapConcepts)
	writeList(&b, t.avoidanceLabel, cc.AvoidanceList)
	writeList(&b, t.recentLabel, cc.RecentConcepts)
	writeList(&b, t.categoriesLabel, cc.PreferredCategories)
	b.WriteString("\n")
	b.WriteString(t.avoidanceInstruction)
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(label)
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

// fill replaces {{name}} placeholders in one pass, so values that happen to
// contain placeholder syntax are never expanded again.
func fill(tmpl string, values map[string]string) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(values)*2)
	for _, name := range names {
		pairs = append(pairs, "{{"+name+"}}", values[name])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
