package credito_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jcandia/frota-fiscal/internal/domain/credito"
)

// TestAliquota cobre a regra binária: 17% dentro do mesmo estado, 7% entre
// estados, e 17% quando qualquer extremo é desconhecido.
func TestAliquota(t *testing.T) {
	casos := []struct {
		nome           string
		ufEmit, ufDest string
		ufIni, ufFim   string
		esperada       decimal.Decimal
	}{
		{"intraestadual", "MS", "MS", "", "", credito.AliquotaIntra},
		{"interestadual", "MS", "SP", "", "", credito.AliquotaInter},
		{"caixa diferente ainda e intra", "ms", "MS", "", "", credito.AliquotaIntra},
		{"destino desconhecido usa padrão", "MS", "", "", "", credito.AliquotaIntra},
		{"origem desconhecida usa padrão", "", "SP", "", "", credito.AliquotaIntra},
		{"fallback para UFs do manifesto", "", "", "MS", "PR", credito.AliquotaInter},
		{"NF-e prevalece sobre manifesto", "MS", "MS", "MS", "PR", credito.AliquotaIntra},
	}

	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			got := credito.Aliquota(c.ufEmit, c.ufDest, c.ufIni, c.ufFim)
			assert.True(t, c.esperada.Equal(got), "esperava %s, veio %s", c.esperada, got)
		})
	}
}

// TestValor valida o arredondamento a duas casas do crédito.
func TestValor(t *testing.T) {
	total := decimal.NewFromFloat(1234.56)
	v := credito.Valor(total, credito.AliquotaIntra)
	assert.True(t, decimal.NewFromFloat(209.88).Equal(v), "1234.56 × 0.17 = 209.8752 → 209.88, veio %s", v)

	v = credito.Valor(decimal.NewFromFloat(100), credito.AliquotaInter)
	assert.True(t, decimal.NewFromFloat(7).Equal(v))
}
