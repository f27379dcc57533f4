package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/nextstep/internal/model"
)

var languages = []Language{Chinese, English}

func TestRender_NoPlaceholderSurvives(t *testing.T) {
	cc := &model.ConceptRecommendationContext{
		MindMapConcepts: []string{"Loss aversion"},
		AvoidanceList:   []string{"Anchoring"},
	}
	modes := []Mode{ModeFull, ModeContent, ModeRecommendations, ""}

	for _, lang := range languages {
		for _, ctx := range Contexts() {
			for _, mode := range modes {
				for _, concepts := range []*model.ConceptRecommendationContext{nil, cc} {
					out, err := Render(ctx, lang, Variables{Mode: mode, ConceptContext: concepts})
					require.NoError(t, err)
					assert.NotContains(t, out, "{{", "ctx=%s lang=%s mode=%s", ctx, lang, mode)
					assert.NotContains(t, out, "}}", "ctx=%s lang=%s mode=%s", ctx, lang, mode)
					assert.NotEmpty(t, out)
				}
			}
		}
	}
}

func TestRender_ContentModeHasNoFormatDirective(t *testing.T) {
	for _, lang := range languages {
		out, err := Render(SmartRecommendation, lang, Variables{
			Mode: ModeContent,
			ConceptContext: &model.ConceptRecommendationContext{
				MindMapConcepts: []string{"Stoicism"},
			},
		})
		require.NoError(t, err)
		assert.NotContains(t, out, FormatMarker)
		assert.NotContains(t, out, `{"type"`)
		assert.NotContains(t, out, "Stoicism", "avoidance block is not part of content mode")
	}
}

func TestRender_RecommendationsMode(t *testing.T) {
	out, err := Render(SmartRecommendation, English, Variables{Mode: ModeRecommendations})
	require.NoError(t, err)

	assert.Contains(t, out, FormatMarker)
	assert.Contains(t, out, `"deepen"`)
	assert.Contains(t, out, `"next"`)
	assert.Contains(t, out, `"describe"`)
	assert.Contains(t, out, "3")
	assert.NotContains(t, out, "Focus and expand")
}

func TestRender_FullModeBlockOrder(t *testing.T) {
	out, err := Render(SmartRecommendation, English, Variables{
		Mode: ModeFull,
		ConceptContext: &model.ConceptRecommendationContext{
			MindMapConcepts: []string{"Loss aversion", "Framing"},
			AvoidanceList:   []string{"Anchoring"},
			RecentConcepts:  []string{"Nudge"},
		},
	})
	require.NoError(t, err)

	narrative := strings.Index(out, "Focus and expand")
	avoidance := strings.Index(out, "## Already explored")
	format := strings.Index(out, "## Output format")
	require.True(t, narrative >= 0 && avoidance >= 0 && format >= 0, out)
	assert.Less(t, narrative, avoidance)
	assert.Less(t, avoidance, format)

	assert.Contains(t, out, "- Loss aversion\n- Framing\n")
	assert.Contains(t, out, "- Anchoring\n")
	assert.Contains(t, out, "- Nudge\n")
	assert.Contains(t, out, `either the "deepen" or the "next" category`)
}

func TestRender_AvoidanceBlockOmittedWhenEmpty(t *testing.T) {
	for _, cc := range []*model.ConceptRecommendationContext{nil, {}, {RecentConcepts: []string{"only recent"}}} {
		out, err := Render(SmartRecommendation, English, Variables{ConceptContext: cc})
		require.NoError(t, err)
		assert.NotContains(t, out, "## Already explored")
	}
}

func TestRender_AvoidanceSubsectionsOnlyWhenNonEmpty(t *testing.T) {
	out, err := Render(SmartRecommendation, English, Variables{
		ConceptContext: &model.ConceptRecommendationContext{AvoidanceList: []string{"Anchoring"}},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Concepts the reader has mastered:")
	assert.NotContains(t, out, "Concepts already in the reader's mind map:")
}

func TestRender_StepDefaultsAndOverrides(t *testing.T) {
	out, err := Render(SmartRecommendation, English, Variables{
		Goal: "Understand Stoic ethics",
		Steps: Steps{
			Deepen: Step{Title: "Dig into Seneca"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Goal: Understand Stoic ethics")
	assert.Contains(t, out, "## Step 2: Dig into Seneca")
	assert.Contains(t, out, englishText.steps.Deepen.Description, "unset fields fall back to defaults")
	assert.Contains(t, out, englishText.steps.Content.Title)
}

func TestRender_ValuesAreNotReExpanded(t *testing.T) {
	out, err := Render(ContentGeneration, English, Variables{Goal: "{{content_title}}"})
	require.NoError(t, err)
	assert.Contains(t, out, "Goal: {{content_title}}")
}

func TestRender_StaticDocuments(t *testing.T) {
	a, err := Render(KnowledgeGraph, English, Variables{Goal: "ignored", Mode: ModeContent})
	require.NoError(t, err)
	b, err := Render(KnowledgeGraph, English, Variables{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, `"exploration_depth"`)

	zh, err := Render(KnowledgeGraph, Chinese, Variables{})
	require.NoError(t, err)
	assert.NotEqual(t, a, zh)

	cg, err := Render(ContentGeneration, Chinese, Variables{})
	require.NoError(t, err)
	assert.Contains(t, cg, chineseText.goal)
}

func TestRender_Deterministic(t *testing.T) {
	vars := Variables{ConceptContext: &model.ConceptRecommendationContext{MindMapConcepts: []string{"a", "b"}}}
	first, err := Render(SmartRecommendation, Chinese, vars)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Render(SmartRecommendation, Chinese, vars)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRender_DefaultLanguage(t *testing.T) {
	a, err := Render(SmartRecommendation, "", Variables{})
	require.NoError(t, err)
	b, err := Render(SmartRecommendation, Chinese, Variables{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRender_TemplateNotFound(t *testing.T) {
	_, err := Render("quizGeneration", English, Variables{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	var tnf *TemplateNotFoundError
	require.True(t, errors.As(err, &tnf))
	assert.Equal(t, Context("quizGeneration"), tnf.Context)
	assert.Equal(t, English, tnf.Language)

	_, err = Render(SmartRecommendation, "fr", Variables{})
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestRenderer_Register(t *testing.T) {
	r := NewRenderer()
	r.Register(Template{Context: "echo", Language: English, Render: func(v Variables) string { return "  " + v.Goal + "  " }})

	out, err := r.Render("echo", English, Variables{Goal: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Contains(t, r.Contexts(), Context("echo"))
	assert.NotContains(t, Contexts(), Context("echo"))
}

func TestParse(t *testing.T) {
	assert.Equal(t, SmartRecommendation, ParseContext("nextStepChat"))
	assert.Equal(t, KnowledgeGraph, ParseContext(" mindMap "))
	assert.Equal(t, ContentGeneration, ParseContext("deep_read"))
	assert.Equal(t, Context("unknown"), ParseContext("unknown"))

	assert.Equal(t, Chinese, ParseLanguage("zh-CN"))
	assert.Equal(t, English, ParseLanguage("EN"))
	assert.Equal(t, DefaultLanguage, ParseLanguage(""))

	assert.Equal(t, ModeContent, ParseMode("Content"))
	assert.Equal(t, ModeRecommendations, ParseMode("recommendations"))
	assert.Equal(t, ModeFull, ParseMode("bogus"))
}
