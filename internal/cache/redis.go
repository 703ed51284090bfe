package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	"github.com/dayvidcds/vigiae-remote-concierge/internal/kv"
)

// Redis é um LinkCache compartilhado entre instâncias, com TTL por chave.
// O limite de tamanho fica a cargo da política de memória do próprio Redis.
type Redis struct {
	client *kv.Client
	ttl    time.Duration
}

// NewRedis cria o cache sobre um cliente kv.
func NewRedis(client *kv.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Get lê e decodifica o snapshot. Um payload corrompido é tratado como miss e removido.
func (r *Redis) Get(ctx context.Context, token string) (domain.LinkSnapshot, bool, error) {
	raw, ok, err := r.client.Get(ctx, Key(token))
	if err != nil || !ok {
		return domain.LinkSnapshot{}, false, err
	}
	var snap domain.LinkSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		_ = r.client.Del(ctx, Key(token))
		return domain.LinkSnapshot{}, false, fmt.Errorf("decode cached link: %w", err)
	}
	return snap, true, nil
}

// Set codifica e grava o snapshot com o TTL configurado.
func (r *Redis) Set(ctx context.Context, token string, snap domain.LinkSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cached link: %w", err)
	}
	return r.client.Set(ctx, Key(token), raw, r.ttl)
}

// Delete remove a chave do token.
func (r *Redis) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, Key(token))
}
