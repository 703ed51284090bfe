// Caminho: internal/kv/redis.go
// Resumo: Cliente Redis (go-redis/v9) com helpers simples de chave/valor com TTL e publicação de eventos.

package kv

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client encapsula o cliente go-redis.
type Client struct {
	rdb *redis.Client
}

// New cria o cliente usando REDIS_URL (URI) ou host/porta/senha separados.
func New(redisURL, host string, port int, pass string, useTLS bool) (*Client, error) {
	if redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, err
		}
		return &Client{rdb: redis.NewClient(opt)}, nil
	}
	addr := host
	if port > 0 {
		addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	opt := &redis.Options{Addr: addr, Password: pass, DB: 0}
	if useTLS {
		opt.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return &Client{rdb: redis.NewClient(opt)}, nil
}

// Wrap usa um *redis.Client já configurado (útil em testes).
func Wrap(rdb *redis.Client) *Client { return &Client{rdb: rdb} }

// Ping verifica a conectividade.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Set grava um valor com TTL.
func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

// Get recupera um valor; ok=false se a chave não existir.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Del remove chaves.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Publish envia uma mensagem para um canal pub/sub.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Close encerra o pool de conexões.
func (c *Client) Close() error { return c.rdb.Close() }
