// Caminho: internal/token/token.go
// Resumo: Geração de tokens opacos para links de convite (32 bytes aleatórios em hex).

package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Bytes é a quantidade de bytes aleatórios por token (256 bits).
const Bytes = 32

// Generator produz tokens opacos. A unicidade é garantida pela constraint
// UNIQUE do armazenamento, não pelo gerador.
type Generator interface {
	Generate() (string, error)
}

// GeneratorFunc adapta uma função a Generator.
type GeneratorFunc func() (string, error)

// Generate chama f().
func (f GeneratorFunc) Generate() (string, error) { return f() }

// Random gera tokens a partir de crypto/rand.
type Random struct {
	// Reader permite injetar a fonte de entropia em testes; nil usa crypto/rand.
	Reader io.Reader
}

// Generate cria um token hex de 64 caracteres.
func (r Random) Generate() (string, error) {
	src := r.Reader
	if src == nil {
		src = rand.Reader
	}
	b := make([]byte, Bytes)
	if _, err := io.ReadFull(src, b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// New retorna um token usando crypto/rand.
func New() (string, error) { return Random{}.Generate() }
