package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirasaad/awgen/infra/initializer"
	"github.com/amirasaad/awgen/pkg/app"
	"github.com/amirasaad/awgen/pkg/handler"
	"github.com/amirasaad/awgen/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the script runtime and serve its packets",
		Args:  cobra.NoArgs,
		RunE:  runHost,
	}
}

func runHost(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	a := app.New(deps, cfg)
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("Failed to release resources", "error", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The runtime outlives the signal so it can be shut down gracefully.
	engineCtx, cancelEngine := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelEngine()
	if err := a.Start(engineCtx); err != nil {
		return fmt.Errorf("failed to start script runtime: %w", err)
	}
	logger.Info("Script runtime started", "project", cfg.Scripts.ProjectFolder)

	var fiberApp *fiber.App
	if cfg.Server.Enabled {
		fiberApp = webapi.SetupApp(a)
	}

	g, gctx := errgroup.WithContext(ctx)
	var status handler.ExitStatus
	g.Go(func() error {
		if fiberApp != nil {
			defer fiberApp.ShutdownWithTimeout(cfg.Scripts.ShutdownWait) //nolint:errcheck
		}
		s, err := a.Serve(gctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Interrupted, shutting down")
				return nil
			}
			return err
		}
		status = s
		return nil
	})
	if fiberApp != nil {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("Starting server",
			"env", cfg.Env,
			"address", addr,
			"scheme", cfg.Server.Scheme,
		)
		g.Go(func() error {
			return fiberApp.Listen(addr)
		})
	}
	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scripts.ShutdownWait)
	defer cancel()
	if serr := a.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("Script runtime did not stop in time", "error", serr)
		cancelEngine()
		if werr := a.Engine.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
			logger.Error("Script runtime stopped with an error", "error", werr)
		}
	}
	if err != nil {
		return err
	}

	logger.Info("Host exited", "code", status.Code, "reason", status.Reason)
	if status.Code != 0 {
		return fmt.Errorf("script exited with code %d: %s", status.Code, status.Reason)
	}
	return nil
}
