// Package pipeline turns a staged diff into a commit message by running a
// sequence of LLM-backed stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jxucoder/meepoo/internal/git"
	"github.com/jxucoder/meepoo/pkg/llm"
)

// ErrNoChanges is returned when there is nothing to describe.
var ErrNoChanges = errors.New("no changes to describe")

// Context carries data through pipeline stages.
type Context struct {
	Ctx          context.Context
	Diff         string
	Files        []git.FileDiff
	HunkComments []string // one "<path>: <summary>" line per file, in file order
	Message      string
}

// Stage is a single step in a pipeline.
type Stage interface {
	Name() string
	Execute(ctx *Context) error
}

// Pipeline executes a sequence of stages.
type Pipeline interface {
	Run(ctx *Context) error
}

// DefaultPipeline runs stages sequentially.
type DefaultPipeline struct {
	stages []Stage
}

// NewPipeline creates a pipeline from the given stages.
func NewPipeline(stages ...Stage) *DefaultPipeline {
	return &DefaultPipeline{stages: stages}
}

// NewPerFilePipeline summarizes each file separately, at most limit at a
// time, then writes one message from the summaries.
func NewPerFilePipeline(gen llm.Generator, limit int) *DefaultPipeline {
	return NewPipeline(
		&SplitStage{},
		NewSummarizeStage(gen, limit),
		NewComposeStage(gen),
	)
}

// NewWholeDiffPipeline sends the entire diff in a single request.
func NewWholeDiffPipeline(gen llm.Generator) *DefaultPipeline {
	return NewPipeline(NewDiffStage(gen))
}

// Run executes all stages in order.
func (p *DefaultPipeline) Run(ctx *Context) error {
	for _, s := range p.stages {
		if err := s.Execute(ctx); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}
	return nil
}

// --- Built-in stages ---

// SplitStage fills Files from Diff.
type SplitStage struct{}

func (s *SplitStage) Name() string { return "split" }

func (s *SplitStage) Execute(ctx *Context) error {
	ctx.Files = git.SplitDiff(ctx.Diff)
	if len(ctx.Files) == 0 {
		return ErrNoChanges
	}
	return nil
}

// SummarizeStage asks for a short summary of every file diff.
type SummarizeStage struct {
	gen   llm.Generator
	limit int
}

// NewSummarizeStage creates a summarize stage. A limit below 1 means one
// request at a time.
func NewSummarizeStage(gen llm.Generator, limit int) *SummarizeStage {
	if limit < 1 {
		limit = 1
	}
	return &SummarizeStage{gen: gen, limit: limit}
}

func (s *SummarizeStage) Name() string { return "summarize" }

func (s *SummarizeStage) Execute(ctx *Context) error {
	if len(ctx.Files) == 0 {
		return ErrNoChanges
	}

	comments := make([]string, len(ctx.Files))
	g, gctx := errgroup.WithContext(ctx.Ctx)
	g.SetLimit(s.limit)

	for i, f := range ctx.Files {
		i, f := i, f
		g.Go(func() error {
			summary, err := s.gen.Summarize(gctx, summaryToken(f))
			if err != nil {
				return fmt.Errorf("summarizing %s: %w", f.Path, err)
			}
			zerolog.Ctx(ctx.Ctx).Debug().Str("file", f.Path).Str("summary", summary).Msg("File summarized")
			comments[i] = hunkComment(f.Path, summary)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ctx.HunkComments = comments
	return nil
}

// ComposeStage writes the commit message from HunkComments.
type ComposeStage struct {
	gen llm.Generator
}

func NewComposeStage(gen llm.Generator) *ComposeStage {
	return &ComposeStage{gen: gen}
}

func (s *ComposeStage) Name() string { return "compose" }

func (s *ComposeStage) Execute(ctx *Context) error {
	msg, err := s.gen.GenerateCommitMessageFromHunks(ctx.Ctx, ctx.HunkComments)
	if err != nil {
		return fmt.Errorf("composing message: %w", err)
	}
	ctx.Message = msg
	return nil
}

// DiffStage writes the commit message straight from Diff.
type DiffStage struct {
	gen llm.Generator
}

func NewDiffStage(gen llm.Generator) *DiffStage {
	return &DiffStage{gen: gen}
}

func (s *DiffStage) Name() string { return "diff" }

func (s *DiffStage) Execute(ctx *Context) error {
	if strings.TrimSpace(ctx.Diff) == "" {
		return ErrNoChanges
	}
	msg, err := s.gen.GenerateCommitMessage(ctx.Ctx, ctx.Diff)
	if err != nil {
		return fmt.Errorf("generating message: %w", err)
	}
	ctx.Message = msg
	return nil
}

// summaryToken is the file path on its own line followed by the file's diff.
func summaryToken(f git.FileDiff) string {
	return f.Path + "\n" + f.Text
}

// hunkComment folds a possibly multi-line summary onto one line after the path.
func hunkComment(path, summary string) string {
	return path + ": " + strings.Join(strings.Fields(summary), " ")
}
