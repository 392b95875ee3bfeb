package alocacao_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandia/frota-fiscal/internal/application/alocacao"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

func itemDiesel(chave string, nItem int, numero string, dias int, litros float64) *entity.ItemNFe {
	d := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC).AddDate(0, 0, dias)
	return &entity.ItemNFe{
		ChaveNFe:         chave,
		NumeroNFe:        numero,
		NumeroItem:       nItem,
		DataEmissao:      &d,
		DescricaoProduto: "OLEO DIESEL B S10",
		ProdANP:          "820101034",
		Quantidade:       litros,
		ValorUnitario:    decimal.NewFromFloat(5.89),
		ValorTotal:       decimal.NewFromFloat(5.89 * litros).Round(2),
		Combustivel:      true,
	}
}

func alvo(v float64) *float64 { return &v }

// Itens que não são diesel (ou sem quantidade) ficam fora do razão.
func TestNovoAlocador_FiltraDiesel(t *testing.T) {
	gasolina := itemDiesel("ch1", 1, "100", 0, 500)
	gasolina.ProdANP = "320101001"
	gasolina.DescricaoProduto = "GASOLINA COMUM"

	zerado := itemDiesel("ch2", 1, "101", 0, 0)

	a := alocacao.NovoAlocador([]*entity.ItemNFe{
		gasolina,
		zerado,
		itemDiesel("ch3", 1, "102", 0, 300),
	})

	assert.InDelta(t, 300, a.SaldoTotal(), 1e-9)
	assert.Zero(t, a.SaldoItem("ch1", 1))
	assert.Zero(t, a.SaldoItem("ch2", 1))
}

// Alocar(nil) e Alocar(0) devolvem lista vazia e não mexem em saldo nenhum.
func TestAlocar_AlvoVazioNaoConsome(t *testing.T) {
	a := alocacao.NovoAlocador([]*entity.ItemNFe{itemDiesel("ch1", 1, "100", 0, 250)})

	assert.Empty(t, a.Alocar(nil))
	assert.Empty(t, a.Alocar(alvo(0)))
	assert.Empty(t, a.Alocar(alvo(-10)))
	assert.InDelta(t, 250, a.SaldoItem("ch1", 1), 1e-9)
}

// FIFO: com itens datados D1 < D2 < D3 e capacidade C cada, Alocar(C*1.5)
// esgota D1 inteiro antes de tocar em D2, e não toca em D3.
func TestAlocar_OrdemFIFO(t *testing.T) {
	const c = 200.0
	d1 := itemDiesel("ch1", 1, "100", 0, c)
	d2 := itemDiesel("ch2", 1, "101", 1, c)
	d3 := itemDiesel("ch3", 1, "102", 2, c)

	// ordem de entrada embaralhada de propósito
	a := alocacao.NovoAlocador([]*entity.ItemNFe{d3, d1, d2})

	alocs := a.Alocar(alvo(c * 1.5))
	require.Len(t, alocs, 2)
	assert.Equal(t, "ch1", alocs[0].Item.ChaveNFe)
	assert.InDelta(t, c, alocs[0].Litros, 1e-6)
	assert.Equal(t, "ch2", alocs[1].Item.ChaveNFe)
	assert.InDelta(t, c/2, alocs[1].Litros, 1e-6)
	assert.InDelta(t, c, a.SaldoItem("ch3", 1), 1e-9)
}

// Itens sem data de emissão ordenam por último.
func TestAlocar_SemDataPorUltimo(t *testing.T) {
	semData := itemDiesel("ch1", 1, "100", 0, 100)
	semData.DataEmissao = nil
	comData := itemDiesel("ch2", 1, "099", 5, 100)

	a := alocacao.NovoAlocador([]*entity.ItemNFe{semData, comData})
	alocs := a.Alocar(alvo(50))
	require.Len(t, alocs, 1)
	assert.Equal(t, "ch2", alocs[0].Item.ChaveNFe)
}

// Alvo acima do disponível devolve alocação parcial, nunca erro.
func TestAlocar_ExaustaoDevolveParcial(t *testing.T) {
	a := alocacao.NovoAlocador([]*entity.ItemNFe{itemDiesel("ch1", 1, "100", 0, 120)})

	alocs := a.Alocar(alvo(500))
	require.Len(t, alocs, 1)
	assert.InDelta(t, 120, alocs[0].Litros, 1e-6)
	assert.InDelta(t, 0, a.SaldoTotal(), 1e-9)

	// nada mais a oferecer
	assert.Empty(t, a.Alocar(alvo(1)))
}

// Propriedade de conservação: para qualquer sequência de chamadas, a soma dos
// litros devolvidos por item nunca excede a quantidade original (tolerância
// 1e-6). Sequências aleatórias com semente fixa.
func TestAlocar_ConservacaoPorItem(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for rodada := 0; rodada < 50; rodada++ {
		itens := make([]*entity.ItemNFe, 0, 6)
		original := make(map[entity.ItemID]float64)
		for i := 0; i < 6; i++ {
			it := itemDiesel(string(rune('a'+i)), i+1, "10"+string(rune('0'+i)), rng.Intn(10), 50+rng.Float64()*450)
			itens = append(itens, it)
			original[it.ID()] = it.Quantidade
		}

		a := alocacao.NovoAlocador(itens)
		somaPorItem := make(map[entity.ItemID]float64)

		for chamada := 0; chamada < 12; chamada++ {
			pedido := rng.Float64() * 400
			for _, al := range a.Alocar(&pedido) {
				somaPorItem[al.Item.ID()] += al.Litros
			}
		}

		for id, soma := range somaPorItem {
			assert.LessOrEqual(t, soma, original[id]+1e-6,
				"item %v superalocado: %f > %f", id, soma, original[id])
		}
	}
}

// Chamadas repetidas nunca reoferecem litros já comprometidos.
func TestAlocar_ChamadasSaoAditivas(t *testing.T) {
	a := alocacao.NovoAlocador([]*entity.ItemNFe{itemDiesel("ch1", 1, "100", 0, 300)})

	primeira := a.Alocar(alvo(200))
	require.Len(t, primeira, 1)
	assert.InDelta(t, 200, primeira[0].Litros, 1e-6)

	segunda := a.Alocar(alvo(200))
	require.Len(t, segunda, 1)
	assert.InDelta(t, 100, segunda[0].Litros, 1e-6, "a segunda chamada só pode entregar o saldo restante")
}

// ConsumirChave zera todos os itens da chave (inclusive saldos parciais) e
// deixa as demais notas intactas.
func TestConsumirChave_ZeraSaldoDaNota(t *testing.T) {
	a := alocacao.NovoAlocador([]*entity.ItemNFe{
		itemDiesel("ch1", 1, "100", 0, 300),
		itemDiesel("ch1", 2, "100", 0, 200),
		itemDiesel("ch2", 1, "101", 1, 150),
	})

	primeira := a.Alocar(alvo(100)) // consumo parcial do primeiro item de ch1
	require.Len(t, primeira, 1)

	consumido := a.ConsumirChave("ch1")
	assert.InDelta(t, 400, consumido, 1e-6, "200 restantes do item 1 + 200 do item 2")
	assert.Zero(t, a.SaldoItem("ch1", 1))
	assert.Zero(t, a.SaldoItem("ch1", 2))
	assert.InDelta(t, 150, a.SaldoItem("ch2", 1), 1e-9)

	// depois do consumo, Alocar só encontra a outra nota
	resto := a.Alocar(alvo(500))
	require.Len(t, resto, 1)
	assert.Equal(t, "ch2", resto[0].Item.ChaveNFe)

	assert.Zero(t, a.ConsumirChave("ch-desconhecida"))
}
