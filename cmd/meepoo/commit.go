package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jxucoder/meepoo/internal/git"
	"github.com/jxucoder/meepoo/pkg/llm"
	"github.com/jxucoder/meepoo/pkg/pipeline"
)

var (
	commitWhole bool
	commitApply bool
	commitStdin bool
	commitDir   string
	commitLimit int
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Write a commit message for the staged changes",
	Long: `Write a commit message for the staged changes.

By default every changed file is summarized on its own (up to --concurrency
requests at a time) and the summaries are combined into one message. With
--whole the entire diff goes out in a single request.

  meepoo commit                 Print a message for "git diff --cached"
  meepoo commit --commit        Commit with the generated message
  git diff HEAD~1 | meepoo commit --stdin --whole`,
	Args: cobra.NoArgs,
	RunE: runCommit,
}

func init() {
	commitCmd.Flags().BoolVar(&commitWhole, "whole", false, "Send the whole diff in one request instead of per file")
	commitCmd.Flags().BoolVar(&commitApply, "commit", false, "Run git commit with the generated message")
	commitCmd.Flags().BoolVar(&commitStdin, "stdin", false, "Read the diff from stdin instead of git")
	commitCmd.Flags().StringVarP(&commitDir, "dir", "C", "", "Repository directory (default: current directory)")
	commitCmd.Flags().IntVar(&commitLimit, "concurrency", 0, "Parallel per-file requests (env MEEPOO_CONCURRENCY)")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, args []string) error {
	if commitStdin && commitApply {
		return fmt.Errorf("--commit cannot be combined with --stdin")
	}
	if commitLimit > 0 {
		cfg.Concurrency = commitLimit
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	repo := &git.Repo{Dir: commitDir}
	var diff string
	if commitStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		diff = string(data)
	} else {
		diff, err = repo.StagedDiff(ctx)
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(diff) == "" {
		return fmt.Errorf("nothing staged; run git add first")
	}

	var p pipeline.Pipeline
	kind := llm.KindHunks
	if commitWhole {
		p = pipeline.NewWholeDiffPipeline(client)
		kind = llm.KindDiff
	} else {
		p = pipeline.NewPerFilePipeline(client, cfg.Concurrency)
	}

	log.Debug().
		Str("endpoint", client.Endpoint()).
		Str("model", client.Model()).
		Str("mode", string(kind)).
		Int("bytes", len(diff)).
		Msg("Generating commit message")

	pctx := &pipeline.Context{Ctx: ctx, Diff: diff}
	if err := p.Run(pctx); err != nil {
		if errors.Is(err, pipeline.ErrNoChanges) {
			return fmt.Errorf("no file changes found in diff")
		}
		return err
	}

	input := diff
	if kind == llm.KindHunks {
		input = strings.Join(pctx.HunkComments, "\n")
	}
	record(ctx, kind, client.Model(), input, pctx.Message)

	fmt.Fprintln(cmd.OutOrStdout(), pctx.Message)

	if commitApply {
		if err := repo.Commit(ctx, pctx.Message); err != nil {
			return err
		}
		log.Info().Msg("Committed")
	}
	return nil
}
