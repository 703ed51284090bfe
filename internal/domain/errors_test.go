package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NewError(CodeExpired, "mensagem diferente")
	if !errors.Is(err, ErrExpired) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(err, ErrRevoked) {
		t.Fatal("expected different codes not to match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("create link: %w", Wrap(CodeStorage, "falha ao gravar", cause))

	if !errors.Is(err, ErrStorage) {
		t.Fatal("expected storage error in chain")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if got := CodeOf(err); got != CodeStorage {
		t.Fatalf("expected code %s, got %s", CodeStorage, got)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if got := CodeOf(errors.New("boom")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
