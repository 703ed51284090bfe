// Caminho: internal/domain/errors.go
// Resumo: Erros de domínio com código estável (legível por máquina) e mensagem para o usuário.

package domain

import "errors"

// Code identifica o tipo de erro de forma estável.
type Code string

const (
	CodeInvalidInput     Code = "LINK_400_INVALID_INPUT"
	CodeInvalidDocument  Code = "LINK_400_INVALID_DOCUMENT"
	CodeNotFound         Code = "LINK_404_NOT_FOUND"
	CodeRevoked          Code = "LINK_410_REVOKED"
	CodeExpired          Code = "LINK_410_EXPIRED"
	CodeCapacityExceeded Code = "LINK_409_CAPACITY"
	CodeConflict         Code = "LINK_409_CONFLICT"
	CodeStorage          Code = "LINK_503_STORAGE"
)

// Error é o erro de domínio com código, mensagem e causa opcional.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implementa a interface error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap expõe a causa para errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Is compara pelo código, de modo que errors.Is(err, ErrExpired) funcione
// independentemente da mensagem.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError cria um erro de domínio simples.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap cria um erro de domínio envolvendo uma causa.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf retorna o código do erro de domínio na cadeia, ou "" se não houver.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Erros comuns de domínio.
var (
	ErrInvalidInput     = NewError(CodeInvalidInput, "Dados inválidos")
	ErrInvalidDocument  = NewError(CodeInvalidDocument, "Documento/CPF inválido")
	ErrNotFound         = NewError(CodeNotFound, "Link não encontrado")
	ErrRevoked          = NewError(CodeRevoked, "Link de convite revogado")
	ErrExpired          = NewError(CodeExpired, "Link de convite expirado")
	ErrCapacityExceeded = NewError(CodeCapacityExceeded, "Limite de visitantes atingido para este link")
	ErrConflict         = NewError(CodeConflict, "Token de convite já existente, tente novamente")
	ErrStorage          = NewError(CodeStorage, "Armazenamento indisponível")
)
