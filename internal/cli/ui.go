package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Astrrra/arcmini/internal/config"
	"github.com/Astrrra/arcmini/internal/feed"
	"github.com/Astrrra/arcmini/internal/logging"
	"github.com/Astrrra/arcmini/internal/tui"
)

func init() {
	rootCmd.AddCommand(uiCmd)
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the arcmini TUI",
	Long:  "Launch the arcmini terminal user interface. The feed file is tailed while it runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func runTUI(ctx context.Context) error {
	if !hasTTY() {
		return &PreflightError{
			Message:  "TUI requires an interactive terminal",
			Hint:     "Run from a terminal, or print the list instead",
			NextStep: "arcmini list",
		}
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if rt.cfg.Feed.Enabled {
		tail := feed.New(rt.cfg.FeedPath(), rt.engine, rt.recorder)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := tail.Run(ctx); err != nil {
				logger := logging.Component("cli")
				logger.Warn().Err(err).Msg("feed stopped")
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	return tui.Run(ctx, tui.Config{
		Theme:                rt.cfg.TUI.Theme,
		Days:                 rt.cfg.TUI.Days,
		RootMapHeightPercent: rt.cfg.TUI.RootMapHeightPercent,
		RefreshInterval:      rt.cfg.TUI.RefreshInterval,
	}, tui.Deps{
		Engine:    rt.engine,
		Recorder:  rt.recorder,
		Publisher: rt.publisher,
		Sessions:  config.NewSessionStore(rt.cfg.SessionPath()),
	})
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
