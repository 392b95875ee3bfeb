package fiscal

import "strings"

// LimparChave normaliza uma chave de acesso de NF-e: remove tudo que não for
// letra/dígito e descarta o prefixo "NFe" quando presente. A chave válida tem
// 44 dígitos, mas valores fora desse formato são devolvidos limpos mesmo assim
// (a validação fica a cargo do chamador).
func LimparChave(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	t := b.String()
	if len(t) >= 3 && strings.EqualFold(t[:3], "NFE") {
		t = t[3:]
	}
	return t
}

// ChaveValida informa se a chave tem os 44 dígitos esperados.
func ChaveValida(s string) bool {
	if len(s) != 44 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
