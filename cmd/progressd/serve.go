package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/progress-relay/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP relay",
		Long: `Starts the tracker, the configured report sinks, and the HTTP API.
Updates are accepted on POST /v1/progress/updates and streamed to
subscribers on GET /v1/progress/stream until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			app, err := server.NewApp(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			if err := app.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run app: %w", err)
			}
			return nil
		},
	}
}
