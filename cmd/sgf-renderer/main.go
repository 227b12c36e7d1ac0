package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	mcptools "github.com/dmmcquay/sgf-renderer/internal/mcp"
	httpserver "github.com/dmmcquay/sgf-renderer/internal/server"
	"github.com/dmmcquay/sgf-renderer/internal/service"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
	"github.com/dmmcquay/sgf-renderer/internal/shutdown"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts appOptions

	root := &cobra.Command{
		Use:          "sgf-renderer",
		Short:        "Render SGF game records as PNG board diagrams",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a JSON config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newRenderCmd(&opts),
		newDescribeCmd(&opts),
		newServeCmd(&opts),
		newMCPCmd(&opts),
		newVersionCmd(),
	)
	return root
}

// readNotation reads a record from path, or stdin for "-", and converts it
// to UTF-8.
func readNotation(path string, stdin io.Reader) (string, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return sgf.DecodeNotation(raw)
}

// moveLimit maps the --moves flag to a request limit. Negative means all.
func moveLimit(cmd *cobra.Command, moves int) *int {
	if !cmd.Flags().Changed("moves") || moves < 0 {
		return nil
	}
	return &moves
}

func newRenderCmd(opts *appOptions) *cobra.Command {
	var (
		in, out, theme string
		kifu           bool
		moves          int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a game record to a PNG file",
		Example: "  sgf-renderer render --in game.sgf --out board.png --theme dark\n" +
			"  sgf-renderer render --in game.sgf --out move50.png --kifu --moves 50",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*opts)
			if err != nil {
				return err
			}
			defer a.close()

			notation, err := readNotation(in, cmd.InOrStdin())
			if err != nil {
				return err
			}

			img, err := a.service.RenderToFile(cmd.Context(), service.Params{
				Notation:  notation,
				Theme:     theme,
				Kifu:      kifu,
				MoveLimit: moveLimit(cmd, moves),
			}, out)
			if err != nil {
				return err
			}

			sum := img.Summary
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s board, %d of %d moves, %d stones, captures B%d W%d\n",
				out, sum.Size, sum.Moves, sum.TotalMoves, sum.Stones, sum.Captures.ByBlack, sum.Captures.ByWhite)
			if sum.SizeWarning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", sum.SizeWarning)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "-", "SGF file to read, - for stdin")
	cmd.Flags().StringVar(&out, "out", "", "PNG file to write")
	cmd.Flags().StringVar(&theme, "theme", "", "dark, light, paper or plain (default from config)")
	cmd.Flags().BoolVar(&kifu, "kifu", false, "number every move and keep captured stones visible")
	cmd.Flags().IntVar(&moves, "moves", -1, "only replay this many moves")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newDescribeCmd(opts *appOptions) *cobra.Command {
	var (
		in    string
		moves int
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the final position of a game record as text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*opts)
			if err != nil {
				return err
			}
			defer a.close()

			notation, err := readNotation(in, cmd.InOrStdin())
			if err != nil {
				return err
			}

			desc, err := a.service.Describe(cmd.Context(), service.Params{
				Notation:  notation,
				MoveLimit: moveLimit(cmd, moves),
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s board, %d of %d moves, captures B%d W%d\n",
				desc.Size, desc.Moves, desc.TotalMoves, desc.Captures.ByBlack, desc.Captures.ByWhite)
			for _, c := range desc.CaptureOrder {
				fmt.Fprintf(w, "  %s taken by move %d\n", c.Stone, c.By)
			}
			fmt.Fprint(w, desc.Board)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "-", "SGF file to read, - for stdin")
	cmd.Flags().IntVar(&moves, "moves", -1, "only replay this many moves")
	return cmd
}

func newServeCmd(opts *appOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appOpts := *opts
			appOpts.withMetrics = true
			a, err := newApp(appOpts)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.HTTPAddr = addr
			}

			manager := shutdown.NewManager(a.logger)
			manager.Register("log-file", func(ctx context.Context) error {
				a.close()
				return nil
			})

			limiter := a.newLimiter()
			manager.Register("rate-limiter", func(ctx context.Context) error {
				limiter.Close()
				return nil
			})

			srv := httpserver.NewHTTPServer(httpserver.Options{
				Addr:         a.cfg.Server.HTTPAddr,
				MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
				Service:      a.service,
				Checker:      a.checker,
				Limiter:      limiter,
				Prometheus:   a.prometheus,
			}, a.logger)
			if err := srv.Start(); err != nil {
				_ = manager.Shutdown(5 * time.Second)
				return fmt.Errorf("failed to start HTTP server: %w", err)
			}
			manager.Register("http-server", srv.Stop)

			a.logger.Info("SGF renderer %s listening on %s (commit: %s, built: %s)",
				Version, srv.Addr(), GitCommit, BuildTime)

			manager.HandleSignals(shutdown.DefaultTimeout)
			manager.WaitForShutdown()
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newMCPCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve render tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appOpts := *opts
			appOpts.withMetrics = true
			a, err := newApp(appOpts)
			if err != nil {
				return err
			}
			defer a.close()

			limiter := a.newLimiter()
			defer limiter.Close()

			mcpServer := server.NewMCPServer(
				a.cfg.Server.Name,
				a.cfg.Server.Version,
				server.WithLogging(),
				server.WithRecovery(),
			)

			middleware := mcptools.NewMiddleware(a.logger, a.collector, limiter)
			middleware.SetPrometheus(a.prometheus)

			tools := mcptools.NewToolsHandler(a.service, a.logger)
			tools.SetMiddleware(middleware)
			tools.SetStatusSources(mcptools.StatusSources{
				Version:   a.cfg.Server.Version,
				GitCommit: GitCommit,
				Collector: a.collector,
				Limiter:   limiter,
				Checker:   a.checker,
			})
			tools.RegisterTools(mcpServer)

			a.logger.Info("SGF renderer MCP server ready (version %s, commit %s)", a.cfg.Server.Version, GitCommit)
			if err := server.ServeStdio(mcpServer); err != nil {
				a.logger.Error("Server error", "error", err)
				return err
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "sgf-renderer version %s\n", Version)
			fmt.Fprintf(w, "Git commit: %s\n", GitCommit)
			fmt.Fprintf(w, "Build time: %s\n", BuildTime)
		},
	}
}
