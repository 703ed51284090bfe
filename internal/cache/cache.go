// Caminho: internal/cache/cache.go
// Resumo: Cache de snapshots de links por token. Não é autoritativo: qualquer leitura precisa
// sobreviver a miss, dado velho ou indisponibilidade, voltando ao banco.

package cache

import (
	"context"
	"time"

	"github.com/dayvidcds/vigiae-remote-concierge/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// KeyPrefix prefixa as chaves de link no cache.
const KeyPrefix = "link:"

// Key devolve a chave de cache de um token.
func Key(token string) string { return KeyPrefix + token }

// LinkCache é o cache rápido de snapshots indexado por token.
type LinkCache interface {
	Get(ctx context.Context, token string) (domain.LinkSnapshot, bool, error)
	Set(ctx context.Context, token string, snap domain.LinkSnapshot) error
	Delete(ctx context.Context, token string) error
}

// Memory é um LinkCache em processo, limitado por TTL e quantidade de entradas.
type Memory struct {
	lru *lru.LRU[string, domain.LinkSnapshot]
}

// DefaultMaxEntries limita o cache em memória quando nenhum tamanho válido é informado.
const DefaultMaxEntries = 100

// NewMemory cria o cache em memória. maxEntries < 1 vira DefaultMaxEntries; o cache
// nunca fica sem limite de tamanho.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{lru: lru.NewLRU[string, domain.LinkSnapshot](maxEntries, nil, ttl)}
}

// Get retorna o snapshot em cache, se houver e não estiver expirado.
func (m *Memory) Get(_ context.Context, token string) (domain.LinkSnapshot, bool, error) {
	snap, ok := m.lru.Get(Key(token))
	return snap, ok, nil
}

// Set grava o snapshot, descartando o menos usado quando o limite é atingido.
func (m *Memory) Set(_ context.Context, token string, snap domain.LinkSnapshot) error {
	m.lru.Add(Key(token), snap)
	return nil
}

// Delete remove a entrada do token.
func (m *Memory) Delete(_ context.Context, token string) error {
	m.lru.Remove(Key(token))
	return nil
}

// Len informa quantas entradas estão no cache.
func (m *Memory) Len() int { return m.lru.Len() }
