// Caminho: internal/auth/jwt.go
// Resumo: Assinatura e verificação de JWT (HMAC) do morador. A emissão real é do serviço de
// autenticação; aqui só validamos o Bearer e extraímos o residentId.

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleResident é o papel exigido nas rotas do morador.
const RoleResident = "resident"

const subjectPrefix = RoleResident + "|"

var (
	ErrMissingToken = errors.New("token ausente")
	ErrInvalidToken = errors.New("token inválido")
	ErrForbidden    = errors.New("papel sem permissão")
)

// Identity é o resultado da verificação de um token.
type Identity struct {
	ResidentID string
	Role       string
}

type claims struct {
	Role string `json:"rol"`
	jwt.RegisteredClaims
}

// Sign emite um token para o morador. Usado por ferramentas locais e testes.
func Sign(secret, algorithm, residentID string, ttl time.Duration, now time.Time) (string, error) {
	method, err := hmacMethod(algorithm)
	if err != nil {
		return "", err
	}
	c := claims{
		Role: RoleResident,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectPrefix + residentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(method, c).SignedString([]byte(secret))
}

// Verify valida assinatura e expiração e exige o papel de morador.
// Só aceita tokens assinados com o algoritmo configurado (SECRET_ALGORITHM).
func Verify(secret, algorithm, tokenStr string) (Identity, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Identity{}, ErrMissingToken
	}
	method, err := hmacMethod(algorithm)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	var c claims
	tok, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{method.Alg()}))
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}
	if !strings.HasPrefix(c.Subject, subjectPrefix) {
		return Identity{}, ErrInvalidToken
	}
	id := strings.TrimSpace(strings.TrimPrefix(c.Subject, subjectPrefix))
	if id == "" {
		return Identity{}, ErrInvalidToken
	}
	if c.Role != RoleResident {
		return Identity{}, ErrForbidden
	}
	return Identity{ResidentID: id, Role: c.Role}, nil
}

// hmacMethod resolve o algoritmo configurado; vazio vale HS256.
func hmacMethod(algorithm string) (*jwt.SigningMethodHMAC, error) {
	alg := strings.ToUpper(strings.TrimSpace(algorithm))
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: algoritmo não suportado %q", algorithm)
	}
	return method, nil
}

// BearerToken extrai o token do cabeçalho Authorization.
func BearerToken(header string) (string, error) {
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", ErrMissingToken
	}
	tok := strings.TrimSpace(header[len("Bearer "):])
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}
