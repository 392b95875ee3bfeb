package fiscal

import (
	"regexp"
	"strings"
)

// Aceita o padrão antigo (AAA-9999) e o Mercosul (AAA9A99).
var placaRx = regexp.MustCompile(`(?i)\b([A-Z]{3}-?\d[A-Z0-9]\d{2})\b`)

// ExtrairPlaca procura uma placa de veículo em texto livre (infCpl/infAdFisco
// da NF-e costumam registrar a placa abastecida). Devolve a placa em maiúsculas
// e sem hífen, ou "" quando nada for encontrado.
func ExtrairPlaca(texto string) string {
	m := placaRx.FindStringSubmatch(texto)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(strings.ToUpper(m[1]), "-", "")
}

// PlacasIguais compara placas ignorando caixa e hífen.
func PlacasIguais(a, b string) bool {
	na := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(a)), "-", "")
	nb := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(b)), "-", "")
	return na != "" && na == nb
}
