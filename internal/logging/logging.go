// Caminho: internal/logging/logging.go
// Resumo: Logger estruturado (log/slog) com níveis simples (DEBUG, INFO, WARN, ERROR) vindos de LOG_LEVEL.

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converte LOG_LEVEL em slog.Level. Valor vazio ou desconhecido vira INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New cria um logger em texto para w. Em produção a saída é JSON.
func New(w io.Writer, level, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(env), "production") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Default cria o logger do processo em stderr.
func Default(level, env string) *slog.Logger {
	return New(os.Stderr, level, env)
}

// Discard devolve um logger que descarta tudo; útil em testes.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
