package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jxucoder/meepoo/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the meepoo HTTP API",
	Long: `Start the HTTP API.

  POST /api/generate/prompt    {"prompt": "..."}
  POST /api/generate/hunks     {"hunk_comments": ["...", "..."]}
  POST /api/generate/diff      {"diff": "..."}
  POST /api/generate/summary   {"token": "..."}
  GET  /api/history?limit=N
  GET  /api/history/{id}
  GET  /api/events             Server-sent stream of new generations
  GET  /health`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (env MEEPOO_ADDR, default :7090)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.ServerAddr = serveAddr
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	var hist server.History
	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		hist = store
	}

	log.Info().
		Str("endpoint", client.Endpoint()).
		Str("model", client.Model()).
		Bool("history", store != nil).
		Msg("Starting server")

	// The serve command has no overall deadline; each request carries its own context.
	srv := server.New(client, client.Model(), hist, log.Logger)
	return srv.Start(cmd.Context(), cfg.ServerAddr)
}
