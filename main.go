package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"persona/app/config"
	"persona/app/service/conversation"
	"persona/app/service/mcpserver"
	"persona/app/service/profile"
	"persona/app/service/prompt"
	"persona/app/service/server"
	"persona/app/service/terminal"
	"persona/app/util/mylog"

	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	mylog.Preinit()

	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd := &cobra.Command{
		Use:           "persona",
		Short:         "Answer questions as a specific person, with a second model checking every reply",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the config file")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the chat API over HTTP",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withInjector(cmd.Context(), func(di *do.Injector) error {
					return do.MustInvoke[*server.Service](di).Run(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "mcp",
			Short: "Serve the chat tool over MCP stdio",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withInjector(cmd.Context(), func(di *do.Injector) error {
					return do.MustInvoke[*mcpserver.Service](di).Run(cmd.Context(), os.Stdin, os.Stdout)
				})
			},
		},
		&cobra.Command{
			Use:   "chat",
			Short: "Chat interactively in the terminal",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withInjector(cmd.Context(), func(di *do.Injector) error {
					replier := do.MustInvoke[*conversation.Service](di)
					return terminal.NewSession(replier, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "ask <message>",
			Short: "Ask a single question without history",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withInjector(cmd.Context(), func(di *do.Injector) error {
					reply, err := do.MustInvoke[*conversation.Service](di).Reply(cmd.Context(), strings.Join(args, " "), nil)
					if err != nil {
						return err
					}

					fmt.Fprintln(cmd.OutOrStdout(), reply)
					return nil
				})
			},
		},
	)

	if err := rootCmd.ExecuteContext(appCtx); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func withInjector(ctx context.Context, run func(di *do.Injector) error) error {
	di := do.New()
	defer di.Shutdown()

	do.ProvideValue(di, ctx)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		return fmt.Errorf("logging init failed: %w", err)
	}

	do.Provide(di, profile.New)
	do.Provide(di, prompt.New)
	do.Provide(di, conversation.New)
	do.Provide(di, server.New)
	do.Provide(di, mcpserver.New)

	// instructions are built eagerly so a broken profile fails at startup
	if _, err = do.Invoke[*prompt.Instructions](di); err != nil {
		return fmt.Errorf("profile init failed: %w", err)
	}

	slog.Info("Service started", "persona", cfg.Persona.Name)

	return run(di)
}
