// Caminho: internal/document/cpf.go
// Resumo: Normalização e validação de CPF (dígitos verificadores por módulo 11 em duas passagens).

package document

import "strings"

// Normalize remove tudo que não for dígito.
func Normalize(doc string) string {
	var b strings.Builder
	b.Grow(len(doc))
	for i := 0; i < len(doc); i++ {
		if c := doc[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ValidCPF informa se doc (formatado ou não) é um CPF válido.
// Rejeita tamanhos diferentes de 11 dígitos e sequências de um único dígito repetido.
func ValidCPF(doc string) bool {
	d := Normalize(doc)
	if len(d) != 11 {
		return false
	}
	allEqual := true
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}
	if checkDigit(d[:9], 10) != int(d[9]-'0') {
		return false
	}
	return checkDigit(d[:10], 11) == int(d[10]-'0')
}

// checkDigit calcula o dígito verificador com pesos decrescentes a partir de weight.
func checkDigit(digits string, weight int) int {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * (weight - i)
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// FormatCPF formata 11 dígitos como 000.000.000-00; outras entradas voltam normalizadas.
func FormatCPF(doc string) string {
	d := Normalize(doc)
	if len(d) != 11 {
		return d
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}
