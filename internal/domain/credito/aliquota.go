// Package credito apura o crédito de ICMS sobre o combustível consumido.
// Regra binária: operação dentro do mesmo estado credita 17%; interestadual,
// 7%. Qualquer UF desconhecida cai no padrão de 17%.
package credito

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// AliquotaIntra crédito para operação intraestadual.
	AliquotaIntra = decimal.NewFromFloat(0.17)
	// AliquotaInter crédito para operação interestadual.
	AliquotaInter = decimal.NewFromFloat(0.07)
)

// Aliquota decide a alíquota de crédito. Para cada extremo usa a primeira UF
// não vazia (NF-e quando houver, senão MDF-e); sem informação suficiente
// devolve a intraestadual.
func Aliquota(ufEmit, ufDest, ufIni, ufFim string) decimal.Decimal {
	a := primeiraUF(ufEmit, ufIni)
	b := primeiraUF(ufDest, ufFim)
	if a == "" || b == "" {
		return AliquotaIntra
	}
	if strings.EqualFold(a, b) {
		return AliquotaIntra
	}
	return AliquotaInter
}

// Valor calcula o crédito: total do combustível × alíquota, arredondado a
// duas casas (meio para cima, convenção fiscal).
func Valor(totalCombustivel, aliquota decimal.Decimal) decimal.Decimal {
	return totalCombustivel.Mul(aliquota).Round(2)
}

func primeiraUF(ufs ...string) string {
	for _, uf := range ufs {
		if s := strings.TrimSpace(uf); s != "" {
			return s
		}
	}
	return ""
}
