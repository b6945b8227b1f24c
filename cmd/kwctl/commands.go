package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/kwmerge/internal/core"
	"github.com/agenthands/kwmerge/internal/core/model"
)

// matcher returns an engine for scoring caller-supplied candidates without
// touching the store.
func (a *app) matcher() *core.Engine {
	if a.engine != nil {
		return a.engine
	}
	return core.NewEngine(nil, a.cfg.Matching, a.logger)
}

func newSimilarityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "similarity STR1 STR2",
		Short: "Score how similar two strings are",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score := a.matcher().Similarity(args[0], args[1])
			if ok, err := a.ui.JSON(map[string]any{"str1": args[0], "str2": args[1], "similarity": score}); ok {
				return err
			}
			a.ui.Info("%q vs %q: %.4f (%.2f%%)", args[0], args[1], score, score*100)
			return nil
		},
	}
}

func newMatchCmd(a *app) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "match INPUT [CANDIDATE...]",
		Short: "Match input against candidates or the stored vocabulary",
		Long: `Without candidates, match scores INPUT against every stored keyword and
prints the best matches. With candidates, only those are scored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Matching.Threshold
			}
			if threshold < 0 || threshold > 1 {
				return fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
			}
			input := args[0]

			var (
				matches []model.Match
				total   int
			)
			if len(args) > 1 {
				matches = a.matcher().AllMatches(input, args[1:], threshold)
				total = len(args) - 1
			} else {
				engine, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				matches, total, err = engine.MatchVocabulary(cmd.Context(), input, threshold)
				if err != nil {
					return err
				}
			}

			if ok, err := a.ui.JSON(map[string]any{"input": input, "total_candidates": total, "matches": matches}); ok {
				return err
			}
			if len(matches) == 0 {
				a.ui.Warning("no match for %q among %d candidates", input, total)
				return nil
			}
			a.ui.Section("matches")
			for _, m := range matches {
				a.ui.Step("%s  %.4f", m.Text, m.Score)
			}
			return nil
		},
	}
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "minimum similarity, 0 accepts everything (default: configured threshold)")
	return cmd
}

func newSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "List keyword pairs that could be merged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			suggestions, err := engine.SuggestMerges(cmd.Context())
			if err != nil {
				return err
			}
			if ok, err := a.ui.JSON(suggestions); ok {
				return err
			}
			if len(suggestions) == 0 {
				a.ui.Success("no merge suggestions")
				return nil
			}
			a.ui.Section("merge suggestions")
			for _, s := range suggestions {
				a.ui.Step("%s (%s) <- %s (%s), %d shared", s.ParentText, s.ParentID, s.ChildText, s.ChildID, s.SharedAnswerCount)
			}
			return nil
		},
	}
}

func newFamiliesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "Group merge suggestions into keyword families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			families, err := engine.Families(cmd.Context())
			if err != nil {
				return err
			}
			if ok, err := a.ui.JSON(families); ok {
				return err
			}
			if len(families) == 0 {
				a.ui.Success("no keyword families")
				return nil
			}
			for _, f := range families {
				a.ui.Section(f.Root.Text)
				texts := make([]string, 0, len(f.Members))
				for _, m := range f.Members {
					texts = append(texts, m.Text)
				}
				a.ui.Step("%s", strings.Join(texts, ", "))
			}
			return nil
		},
	}
}

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge PARENT_ID CHILD_ID",
		Short: "Move every answer of the child keyword onto the parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			result, err := engine.MergeKeywords(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if ok, err := a.ui.JSON(result); ok {
				return err
			}
			if result.AlreadyMerged {
				a.ui.Warning("keyword %s is already merged", result.ChildID)
				return nil
			}
			a.ui.Success("merged %s into %s: %d repointed, %d dropped", result.ChildID, result.ParentID, result.Repointed, result.Dropped)
			return nil
		},
	}
}

func newDedupeCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "dedupe ANSWER_ID",
		Short: "Remove keywords an answer's longer keywords already contain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			var removals []model.Removal
			if dryRun {
				_, removals, err = engine.AnswerDuplicates(cmd.Context(), args[0])
			} else {
				removals, err = engine.DeduplicateAnswer(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			if ok, err := a.ui.JSON(removals); ok {
				return err
			}
			if len(removals) == 0 {
				a.ui.Success("answer %s has no duplicate keywords", args[0])
				return nil
			}
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			for _, r := range removals {
				a.ui.Step("%s %q (kept %q)", verb, r.Child.Text, r.Parent.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be removed")
	return cmd
}

func newAttachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attach ANSWER_ID TEXT",
		Short: "Tag an answer with a keyword and deduplicate it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			kw, removals, err := engine.AttachKeyword(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if ok, err := a.ui.JSON(map[string]any{"keyword": kw, "removed": removals}); ok {
				return err
			}
			a.ui.Success("attached %q (%s) to %s", kw.Text, kw.ID, args[0])
			for _, r := range removals {
				a.ui.Step("removed %q (kept %q)", r.Child.Text, r.Parent.Text)
			}
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show keyword usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := engine.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ok, err := a.ui.JSON(stats); ok {
				return err
			}
			a.ui.Section("keywords")
			a.ui.Info("total: %d", stats.TotalKeywords)
			a.ui.Info("linked answers: %d", stats.LinkedAnswers)
			a.ui.Info("orphaned: %d", stats.OrphanedKeywords)
			a.ui.Info("answers per keyword: %.2f", stats.AvgAnswersPerKeyword)
			return nil
		},
	}
}

func newCleanupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete keywords that tag no answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			result, err := engine.CleanupOrphans(cmd.Context())
			if err != nil {
				return err
			}
			if ok, err := a.ui.JSON(result); ok {
				return err
			}
			a.ui.Success("deleted %d orphaned keywords", len(result.Deleted))
			for _, kw := range result.Deleted {
				a.ui.Step("%s (%s)", kw.Text, kw.ID)
			}
			return nil
		},
	}
}
