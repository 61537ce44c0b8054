package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/vrmtrack/internal/app"
	"github.com/ayusman/vrmtrack/internal/config"
	"github.com/ayusman/vrmtrack/internal/log"
	"github.com/ayusman/vrmtrack/internal/server"
	"github.com/ayusman/vrmtrack/internal/store"
	"github.com/ayusman/vrmtrack/internal/tray"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var avatarPath string
	var bind string
	var withTray bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start tracking and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if avatarPath != "" {
					expanded, err := config.ExpandPath(avatarPath)
					if err != nil {
						return err
					}
					cfg.Avatar.Path = expanded
					cfg.Avatar.Version = ""
				}
				if bind != "" {
					cfg.Server.Bind = bind
				}
				return runTracker(cmd, cfg, st, withTray)
			})
		},
	}

	cmd.Flags().StringVar(&avatarPath, "avatar", "", "Avatar model (.vrm, .glb or .gltf) whose metadata selects the rig version")
	cmd.Flags().StringVar(&bind, "bind", "", "HTTP listen address (overrides server.bind)")
	cmd.Flags().BoolVar(&withTray, "tray", false, "Show a system tray icon")
	return cmd
}

func runTracker(cmd *cobra.Command, cfg *config.Config, st *store.Store, withTray bool) error {
	logger := log.L()

	a, err := app.New(app.Config{Settings: cfg, Store: st, Logger: logger})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := a.Session()
	sess.OnReady(func() {
		logger.Info("avatar is live", "rig", a.Rig().Version().String())
	})

	if err := a.Start(runCtx); err != nil {
		return err
	}
	defer func() {
		if err := a.Stop(); err != nil {
			logger.Warn("failed to stop tracking", "error", err)
		}
	}()

	srv := server.New(server.Config{
		StaticDir:     cfg.Server.StaticDir,
		Store:         st,
		Session:       sess,
		Logger:        logger,
		ProfileEngine: a.ProfileEngine,
	})

	url := "http://" + cfg.Server.Bind
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tracking with rig %s", a.Rig().Version())
	if p := a.Profile(); p != "" {
		fmt.Fprintf(out, " (profile %s)", p)
	}
	fmt.Fprintf(out, "\nAPI listening on %s\n", url)

	if !withTray {
		return serveErr(srv.ListenAndServe(runCtx, cfg.Server.Bind))
	}

	t := tray.New()
	t.OnToggle(sess.SetEnabled)
	t.OnViewer(func() {
		if err := openBrowser(url); err != nil {
			logger.Warn("failed to open browser", "error", err)
		}
	})
	t.OnQuit(stop)
	sess.OnReady(func() { t.SetReady(true) })

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(runCtx, cfg.Server.Bind)
		t.Quit()
	}()

	// The tray owns the main goroutine until Quit.
	t.Run()
	stop()
	return serveErr(<-errCh)
}

func serveErr(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
