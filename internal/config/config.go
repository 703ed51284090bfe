// Caminho: internal/config/config.go
// Resumo: Carrega e expõe variáveis de configuração do sistema a partir de variáveis de ambiente.
// Inclui defaults seguros para desenvolvimento e centraliza chaves usadas no serviço.

package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // garante LoadLocation em imagens sem zoneinfo

	"github.com/caarlos0/env/v11"
)

// Config representa as configurações necessárias do serviço.
type Config struct {
	DeploymentEnv string `env:"DEPLOYMENT_ENVIRONMENT" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"INFO"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`

	// Banco de dados (Postgres/SQLite)
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis (opcional): quando ausente, o cache fica em memória e os eventos não são publicados
	RedisHost string `env:"REDIS_HOST"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"0"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisTLS  bool   `env:"REDIS_USE_TLS" envDefault:"false"`
	RedisURL  string `env:"REDIS_URL"`

	// JWT do morador (emitido pelo serviço de autenticação)
	SecretKey       string `env:"SECRET_KEY" envDefault:"change-me"`
	SecretAlgorithm string `env:"SECRET_ALGORITHM" envDefault:"HS256"`

	// Links de convite
	LinkExpirationHours int           `env:"LINK_EXPIRATION_HOURS" envDefault:"1"`
	LinkBaseURL         string        `env:"LINK_BASE_URL" envDefault:"http://localhost:3000"`
	LinkRetentionDays   int           `env:"LINK_RETENTION_DAYS" envDefault:"7"`
	LinkSweepInterval   time.Duration `env:"LINK_SWEEP_INTERVAL" envDefault:"5m"`
	LinkTimezone        string        `env:"LINK_TIMEZONE" envDefault:"America/Sao_Paulo"`

	// Cache de links
	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"1h"`
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"100"`

	// Notificações (fire-and-forget)
	NotifyRedisChannel string `env:"NOTIFY_REDIS_CHANNEL" envDefault:"portal:visitor-registered"`
	NotifyEmailTo      string `env:"NOTIFY_EMAIL_TO"`

	// E-mail (SMTP)
	EmailUsername       string `env:"EMAIL_SERVER_USERNAME"`
	EmailPassword       string `env:"EMAIL_SERVER_PASSWORD"`
	EmailSMTPHost       string `env:"EMAIL_SERVER_SMTP_HOST"`
	EmailSMTPPort       int    `env:"EMAIL_SERVER_SMTP_PORT" envDefault:"587"`
	EmailSMTPEncryption string `env:"EMAIL_SERVER_SMTP_ENCRYPTION" envDefault:"STARTTLS"`
	EmailFromAddress    string `env:"EMAIL_FROM_ADDRESS"`
	EmailFromName       string `env:"EMAIL_FROM_NAME" envDefault:"Portaria Remota"`

	// Metadados / telemetria
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"vigiae-remote-concierge"`
	Version      string `env:"SERVICE_VERSION" envDefault:"0.1.0"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load carrega as variáveis de configuração a partir do ambiente e devolve uma instância de Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.EmailFromAddress == "" {
		cfg.EmailFromAddress = cfg.EmailUsername
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejeita valores fora dos limites aceitos pelo motor de links.
func (c *Config) validate() error {
	if c.LinkExpirationHours < 1 {
		return fmt.Errorf("config: LINK_EXPIRATION_HOURS deve ser >= 1")
	}
	if c.LinkRetentionDays < 1 {
		return fmt.Errorf("config: LINK_RETENTION_DAYS deve ser >= 1")
	}
	if c.LinkSweepInterval <= 0 {
		return fmt.Errorf("config: LINK_SWEEP_INTERVAL deve ser positivo")
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("config: CACHE_MAX_ENTRIES deve ser >= 1")
	}
	if strings.TrimSpace(c.LinkBaseURL) == "" {
		return fmt.Errorf("config: LINK_BASE_URL é obrigatório")
	}
	return nil
}

// Location resolve LINK_TIMEZONE; em caso de nome inválido usa UTC.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(strings.TrimSpace(c.LinkTimezone)); err == nil {
		return loc
	}
	return time.UTC
}

// RedisEnabled informa se há algum destino Redis configurado.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisURL) != "" || strings.TrimSpace(c.RedisHost) != ""
}
