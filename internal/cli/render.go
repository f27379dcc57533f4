package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/nextstep/internal/model"
	"github.com/rcliao/nextstep/internal/prompt"
)

func init() {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a prompt template",
		Long: "Render one of the prompt templates (smartRecommendation, knowledgeGraph, contentGeneration). " +
			"Legacy names such as nextStepChat or mindMap are accepted.",
		Run: runRender,
	}

	cmd.Flags().StringP("context", "c", string(prompt.SmartRecommendation), "Template context")
	cmd.Flags().StringP("mode", "m", string(prompt.ModeFull), "Mode: full, content or recommendations")
	cmd.Flags().StringP("goal", "g", "", "Reading goal")
	cmd.Flags().String("avoid", "", "Comma-separated concepts already mastered")
	cmd.Flags().String("recent", "", "Comma-separated recently explored concepts, newest first")
	cmd.Flags().String("mind-map", "", "Comma-separated concepts already on the mind map")
	cmd.Flags().String("categories", "", "Comma-separated preferred categories")
	cmd.Flags().Bool("list", false, "List available template contexts")

	RootCmd.AddCommand(cmd)
}

func runRender(cmd *cobra.Command, args []string) {
	if list, _ := cmd.Flags().GetBool("list"); list {
		printJSON(prompt.Contexts())
		return
	}

	ctxName, _ := cmd.Flags().GetString("context")
	mode, _ := cmd.Flags().GetString("mode")
	goal, _ := cmd.Flags().GetString("goal")
	avoid, _ := cmd.Flags().GetString("avoid")
	recent, _ := cmd.Flags().GetString("recent")
	mindMap, _ := cmd.Flags().GetString("mind-map")
	categories, _ := cmd.Flags().GetString("categories")

	vars := prompt.Variables{Mode: prompt.ParseMode(mode), Goal: goal}
	cc := model.ConceptRecommendationContext{
		AvoidanceList:       splitList(avoid),
		RecentConcepts:      splitList(recent),
		MindMapConcepts:     splitList(mindMap),
		PreferredCategories: splitList(categories),
	}
	if cc.HasAvoidance() || len(cc.RecentConcepts) > 0 || len(cc.PreferredCategories) > 0 {
		vars.ConceptContext = &cc
	}

	tmplCtx := prompt.ParseContext(ctxName)
	lang := renderLanguage()
	out, err := prompt.Render(tmplCtx, lang, vars)
	if err != nil {
		exitErr("render", err)
	}

	if textFormat() {
		fmt.Println(out)
		return
	}
	printJSON(map[string]string{
		"context":  string(tmplCtx),
		"language": string(lang),
		"prompt":   out,
	})
}

// renderLanguage is the --lang flag, falling back to the configured language.
func renderLanguage() prompt.Language {
	if langFlag != "" {
		return prompt.ParseLanguage(langFlag)
	}
	return prompt.ParseLanguage(getConfig().Language)
}
