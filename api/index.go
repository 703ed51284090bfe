// Caminho: api/index.go
// Resumo: Ponto de entrada serverless (Vercel). As dependências são montadas uma única vez,
// no primeiro request (cold start).

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/app"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/config"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/logging"
)

var (
	once     sync.Once
	instance *app.App
	initErr  error
)

func setup() {
	// Em desenvolvimento o .env local sobrescreve variáveis já definidas.
	_ = godotenv.Overload()
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	log := logging.Default(cfg.LogLevel, cfg.DeploymentEnv)
	// Sem DATABASE_URL em serverless, usa SQLite em /tmp (única área gravável).
	if strings.TrimSpace(cfg.DatabaseURL) == "" && (os.Getenv("VERCEL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "") {
		cfg.DatabaseURL = "sqlite:///tmp/portal_morador.db"
		log.Info("serverless init: selecting database", "target", "sqlite-/tmp")
	}
	instance, initErr = app.Build(context.Background(), cfg, log)
	if initErr != nil {
		log.Error("serverless init failed", "error", initErr)
	}
}

// Handler é o ponto de entrada exigido pelo runtime Go da Vercel.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	if initErr != nil {
		slog.Error("service unavailable", "error", initErr)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"code":    "HTTP_503",
			"message": "Serviço indisponível",
		})
		return
	}
	instance.Handler.ServeHTTP(w, r)
}
