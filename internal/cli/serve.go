package cli

import (
	"fmt"

	"cvforge/internal/ai"
	"cvforge/internal/server"
	"cvforge/internal/session"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resume builder API",
	Long: `Start an HTTP server that keeps one resume record per session and exposes
the builder operations as REST endpoints.

Available endpoints:
- POST   /sessions: Create a session with an empty record
- GET    /sessions/{id}: Get the session record
- DELETE /sessions/{id}: Delete a session
- POST   /sessions/{id}/upload: Parse an uploaded PDF or DOCX into the record
- PUT    /sessions/{id}/personal-info, /summary: Edit the record
- POST   /sessions/{id}/{section}: Append an entry (experience, projects, achievements, education)
- PUT    /sessions/{id}/{section}/{index}: Replace an entry
- DELETE /sessions/{id}/{section}/{index}: Delete an entry (also skills)
- POST   /sessions/{id}/skills: Add a skill
- POST   /sessions/{id}/refine: Rewrite one field with AI
- POST   /sessions/{id}/skills/suggest: Suggest skills for a role
- POST   /sessions/{id}/skills/suggestions/{index}/accept: Accept a suggestion
- POST   /sessions/{id}/cover-letter: Download a cover letter
- GET    /sessions/{id}/pdf: Download the rendered PDF
- GET    /health: Health check endpoint
- GET    /stats: Server, session and rate limiting statistics`,
	RunE: runServe,
}

var (
	serveHost string
	servePort string
)

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// Flags override the loaded config.
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}

	svc, err := ai.NewService(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	watcher, err := cfg.WatchPrompts(logger)
	if err != nil {
		return fmt.Errorf("failed to watch prompt files: %w", err)
	}
	if watcher != nil {
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop prompt watcher")
			}
		}()
	}

	store := session.NewStore(cfg.Server.Sessions, logger)
	defer store.Close()

	srv := server.NewServer(cfg, server.ConfigFromApp(cfg, Version), svc, store, logger)
	return srv.Start(cmd.Context())
}
