// Package texto concentra a normalização de nomes de cidades e endereços:
// "ITAPORA", "Itaporã" e "itapora" precisam colidir na mesma chave de cache
// e render igual nas planilhas.
package texto

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var titulador = cases.Title(language.BrazilianPortuguese)

// Titulo converte para caixa de título pt-BR ("PONTA PORA" -> "Ponta Pora").
func Titulo(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return titulador.String(strings.ToLower(s))
}

// SemAcentos remove marcas diacríticas ("Itaporã" -> "Itapora").
func SemAcentos(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// MesmoLugar compara dois nomes de lugar ignorando acentos, caixa e espaços.
func MesmoLugar(a, b string) bool {
	na := strings.ToUpper(strings.TrimSpace(SemAcentos(a)))
	nb := strings.ToUpper(strings.TrimSpace(SemAcentos(b)))
	return na != "" && na == nb
}

// NormalizarEspacos colapsa espaços repetidos; usada como chave de cache.
func NormalizarEspacos(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
