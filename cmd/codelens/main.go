// Command codelens is the semantic code intelligence service: an HTTP
// API, an MCP stdio server and a set of one-shot query commands over
// the same core.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/mcpserver"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/scheduler"
	"github.com/aqua777/codelens/server"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codelens",
		Short:         "Semantic code intelligence service",
		Long:          "codelens indexes source trees and documentation into vector and graph collections and answers questions about them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(
		newRunCmd(),
		newMCPCmd(),
		newHealthCmd(),
		newIndexCmd(),
		newRefreshCmd(),
		newIndexConversationsCmd(),
		newSearchCmd(),
		newSmartCmd(),
		newComplexCmd(),
		newExistsCmd(),
		newViolationsCmd(),
		newArchitectureCmd(),
		newCheckViolationCmd(),
		newBusinessCmd(),
		newDiagramCmd(),
		newSuggestCmd(),
		newIndexDocsCmd(),
		newSearchDocsCmd(),
		newHowToCmd(),
		newListDocsCmd(),
		newComponentsCmd(),
	)
	return root
}

// withRegistry loads the config, builds the shared registry and hands
// it to fn, tearing everything down afterwards.
func withRegistry(fn func(ctx context.Context, reg *resource.Registry) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := resource.NewRegistry(ctx, cfg, resource.WithLogger(log))
	if err != nil {
		return err
	}
	defer reg.Close()

	return fn(ctx, reg)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the HTTP server and the documentation refresh scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				srv, err := server.New(reg)
				if err != nil {
					return err
				}
				sched := scheduler.New(srv.Engine().Store(), reg.Config(), reg.Logger())

				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error { return srv.Run(ctx) })
				g.Go(func() error {
					if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
						return err
					}
					return nil
				})
				if err := g.Wait(); err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			})
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tool interface over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRegistry(func(ctx context.Context, reg *resource.Registry) error {
				srv, err := mcpserver.New(reg)
				if err != nil {
					return err
				}
				return srv.Serve()
			})
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe a running service's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			host := cfg.ServerHost
			if host == "0.0.0.0" || host == "" {
				host = "localhost"
			}
			url := fmt.Sprintf("http://%s:%d/health", host, cfg.ServerPort)

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("service unreachable at %s: %w", url, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("service unhealthy: %s", resp.Status)
			}
			fmt.Println("healthy")
			return nil
		},
	}
}
