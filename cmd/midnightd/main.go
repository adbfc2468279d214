package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roasbeef/midnight/internal/app"
	"github.com/roasbeef/midnight/internal/build"
	"github.com/roasbeef/midnight/internal/config"
	"github.com/roasbeef/midnight/internal/mcp"
	"github.com/roasbeef/midnight/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "midnightd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile = flag.String("env", "", "Path to a .env file (default ./.env)")
		webAddr = flag.String("web", "", "Web server address, overrides LISTEN_ADDR")
		mcpMode = flag.Bool("mcp", false, "Also serve MCP tools on stdio")
		noWeb   = flag.Bool("no-web", false, "Disable the web server (MCP only)")
	)
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if *webAddr != "" {
		cfg.Web.Addr = *webAddr
	}
	if *noWeb && !*mcpMode {
		return errors.New("-no-web requires -mcp")
	}

	logger, logCloser, err := build.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	// Set up signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	svc := a.Service

	g, gctx := errgroup.WithContext(ctx)

	if !*noWeb {
		gin.SetMode(gin.ReleaseMode)
		webServer := web.NewServer(cfg.Web, svc, logger)

		g.Go(webServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutting down web server...")

			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), 10*time.Second,
			)
			defer cancel()

			return webServer.Shutdown(shutdownCtx)
		})
	}

	// The MCP session ends when the stdio client goes away. That only
	// stops the process when there is no web server to keep running.
	if *mcpMode {
		mcpServer := mcp.NewServer(mcp.DefaultConfig(), svc, logger)
		g.Go(func() error {
			err := mcpServer.Run(gctx, &sdkmcp.StdioTransport{})
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("mcp server: %w", err)
			}

			return nil
		})
	}

	return g.Wait()
}
