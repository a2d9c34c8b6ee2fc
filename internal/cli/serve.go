package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/nodewire/internal/server"
)

// serveCommand creates the "serve" command that runs the HTTP host.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		origin  string
		ttl     time.Duration
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve documents over HTTP",
		Long: `Run the HTTP host.

Workspaces are held in memory and dropped after --ttl without use. Render
requests share the configured cache with the render command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			shutdown, err := cfg.ShutdownTimeout()
			if err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			store := server.NewStore(cfg.EditorConfig(), cfg.Metrics(), ttl)
			defer store.Close()

			logger := loggerFromContext(ctx)
			srv := server.New(store, runner, logger, server.Options{
				Addr:            addr,
				ShutdownTimeout: shutdown,
				MaxBodyBytes:    cfg.Server.MaxBodyBytes,
				AllowOrigin:     origin,
			})
			p := newProgress(logger)
			if err := srv.ListenAndServe(ctx); err != nil {
				return err
			}
			p.done(fmt.Sprintf("Served %d workspaces", store.Served()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, 127.0.0.1:8750)")
	cmd.Flags().StringVar(&origin, "allow-origin", "*", "value of Access-Control-Allow-Origin")
	cmd.Flags().DurationVar(&ttl, "ttl", server.DefaultWorkspaceTTL, "drop workspaces unused for this long")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")

	return cmd
}
