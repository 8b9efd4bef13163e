package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jxucoder/meepoo/internal/history"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past generations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one generation with its full input",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Print JSON")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries, 0 for all")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func requireHistory() (*history.Store, error) {
	store, err := openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("history is disabled (MEEPOO_HISTORY=false)")
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := requireHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	gens, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		if gens == nil {
			gens = []*history.Generation{}
		}
		return writeIndentedJSON(out, gens)
	}
	if len(gens) == 0 {
		fmt.Fprintln(out, "No generations yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tWHEN\tOUTPUT")
	for _, g := range gens {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			g.ID, g.Kind, g.CreatedAt.Local().Format(time.DateTime), firstLine(g.Output, 60))
	}
	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := requireHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writeIndentedJSON(out, g)
	}
	fmt.Fprintf(out, "ID:      %s\n", g.ID)
	fmt.Fprintf(out, "Kind:    %s\n", g.Kind)
	fmt.Fprintf(out, "Model:   %s\n", g.Model)
	fmt.Fprintf(out, "Created: %s\n", g.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "\n--- input ---\n%s\n\n--- output ---\n%s\n", g.Input, g.Output)
	return nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// firstLine returns the first line of s, cut to n runes.
func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
