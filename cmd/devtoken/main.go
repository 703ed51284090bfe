// Caminho: cmd/devtoken/main.go
// Resumo: Utilitário de desenvolvimento que emite um JWT de morador assinado com SECRET_KEY,
// para testar as rotas protegidas localmente.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/auth"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/config"
)

func main() {
	var (
		envFile  string
		resident string
		ttl      time.Duration
	)
	flags := pflag.NewFlagSet("devtoken", pflag.ExitOnError)
	flags.StringVar(&envFile, "env-file", ".env", "arquivo .env")
	flags.StringVarP(&resident, "resident", "r", "", "id do morador (obrigatório)")
	flags.DurationVar(&ttl, "ttl", time.Hour, "validade do token")
	_ = flags.Parse(os.Args[1:])

	if resident == "" {
		fmt.Fprintln(os.Stderr, "--resident é obrigatório")
		os.Exit(2)
	}
	_ = godotenv.Load(envFile)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	tok, err := auth.Sign(cfg.SecretKey, cfg.SecretAlgorithm, resident, ttl, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ACCESS_TOKEN=" + tok)
}
