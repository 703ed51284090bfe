// Caminho: cmd/server/main.go
// Resumo: Servidor HTTP local. Sobe a API do portal e a varredura periódica de links no mesmo processo.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/app"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/config"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/logging"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile   string
		addr      string
		noSweeper bool
	)
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.StringVar(&envFile, "env-file", ".env", "arquivo .env carregado antes das variáveis de ambiente")
	flags.StringVar(&addr, "addr", "", "endereço HTTP (padrão: HTTP_ADDR)")
	flags.BoolVar(&noSweeper, "no-sweeper", false, "não executa a varredura periódica neste processo")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	_ = godotenv.Load(envFile)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTPAddr = addr
	}
	log := logging.Default(cfg.LogLevel, cfg.DeploymentEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, cfg.ServiceName, cfg.Version)
	if err != nil {
		log.Warn("telemetry disabled", "error", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(sctx); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("API iniciada", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if !noSweeper {
		g.Go(func() error {
			a.Links.RunSweeper(gctx, cfg.LinkSweepInterval)
			return nil
		})
	}
	return g.Wait()
}
