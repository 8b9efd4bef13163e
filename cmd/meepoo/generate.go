package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jxucoder/meepoo/pkg/llm"
)

var promptCmd = &cobra.Command{
	Use:   "prompt TEXT...",
	Short: "Send a free-form prompt",
	Long: `Send a free-form prompt to the model and print the reply.

  meepoo prompt "write a haiku about rebasing"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, llm.KindPrompt, strings.Join(args, " "))
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [TEXT...]",
	Short: "Summarize a change in a few words",
	Long: `Summarize a change (a diff chunk, a file name plus its changes, ...)
in a few words. Reads stdin when no text is given.

  git diff main.go | meepoo summarize`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			input = string(data)
		}
		return runGenerate(cmd, llm.KindSummary, input)
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(summarizeCmd)
}

func runGenerate(cmd *cobra.Command, kind llm.Kind, input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("nothing to send: input is empty")
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var text string
	switch kind {
	case llm.KindSummary:
		text, err = client.Summarize(ctx, input)
	default:
		text, err = client.GenerateMessage(ctx, input)
	}
	if err != nil {
		return err
	}

	record(ctx, kind, client.Model(), input, text)
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
