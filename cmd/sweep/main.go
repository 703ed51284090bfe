// Caminho: cmd/sweep/main.go
// Resumo: Executa uma única varredura de links (revoga vencidos e apaga antigos). Para agendadores externos.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/app"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/config"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile string
		timeout time.Duration
	)
	flags := pflag.NewFlagSet("sweep", pflag.ContinueOnError)
	flags.StringVar(&envFile, "env-file", ".env", "arquivo .env carregado antes das variáveis de ambiente")
	flags.DurationVar(&timeout, "timeout", 2*time.Minute, "tempo máximo da varredura")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	_ = godotenv.Load(envFile)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.Default(cfg.LogLevel, cfg.DeploymentEnv)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	return json.NewEncoder(os.Stdout).Encode(a.Links.Sweep(ctx))
}
