package merge

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

func contextoBase() *ContextoMatch {
	inicio := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return &ContextoMatch{
		Viagem: &entity.Manifesto{
			Placa:       "ABC1D23",
			DhIniViagem: &inicio,
		},
		Item:            &entity.ItemNFe{},
		LitrosEstimados: 0,
	}
}

func TestPontuar_Criterios(t *testing.T) {
	emissaoMesmoDia := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	emissaoDoisDias := time.Date(2025, 3, 8, 8, 0, 0, 0, time.UTC)
	emissaoLonge := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	casos := []struct {
		nome    string
		ajustar func(c *ContextoMatch)
		pontos  int
	}{
		{
			nome:    "nada em comum",
			ajustar: func(c *ContextoMatch) { c.Item.DataEmissao = &emissaoLonge },
			pontos:  0,
		},
		{
			nome: "cidade do fornecedor aparece na rota",
			ajustar: func(c *ContextoMatch) {
				c.Item.EmitCidade = "ITAPORÃ"
				c.Pontos = []entity.Waypoint{{Endereco: "Itapora, MS"}} // sem acento de propósito
			},
			pontos: 10,
		},
		{
			nome:    "emissão no mesmo dia",
			ajustar: func(c *ContextoMatch) { c.Item.DataEmissao = &emissaoMesmoDia },
			pontos:  20,
		},
		{
			nome:    "emissão a dois dias pontua só a janela larga",
			ajustar: func(c *ContextoMatch) { c.Item.DataEmissao = &emissaoDoisDias },
			pontos:  10,
		},
		{
			nome: "litros dentro de 10%",
			ajustar: func(c *ContextoMatch) {
				c.LitrosEstimados = 95
				c.Item.Quantidade = 100
			},
			pontos: 20,
		},
		{
			nome: "litros entre 10% e 20% pontuam só a janela larga",
			ajustar: func(c *ContextoMatch) {
				c.LitrosEstimados = 85
				c.Item.Quantidade = 100
			},
			pontos: 10,
		},
		{
			nome:    "placa idêntica mesmo com hífen",
			ajustar: func(c *ContextoMatch) { c.Item.PlacaObservada = "ABC-1D23" },
			pontos:  30,
		},
		{
			nome: "custo estimado compatível com o total da nota",
			ajustar: func(c *ContextoMatch) {
				c.LitrosEstimados = 50
				c.Item.Quantidade = 300 // fora das janelas de litros
				c.Item.ValorUnitario = decimal.NewFromFloat(6.00)
				c.Item.ValorTotal = decimal.NewFromFloat(310.00) // estimado 300, dentro de 10%
			},
			pontos: 15,
		},
	}

	for _, tc := range casos {
		t.Run(tc.nome, func(t *testing.T) {
			c := contextoBase()
			tc.ajustar(c)
			total, _ := Pontuar(c)
			assert.Equal(t, tc.pontos, total)
		})
	}
}

func TestPontuar_SemDatasNaoPontuaJanela(t *testing.T) {
	c := contextoBase()
	c.Viagem.DhIniViagem = nil
	total, acertos := Pontuar(c)
	assert.Zero(t, total)
	assert.Empty(t, acertos)
}

func TestMelhorCandidato_MaiorPontuacaoVence(t *testing.T) {
	viagem := contextoBase().Viagem

	longe := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	perto := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

	fraco := &entity.ItemNFe{ChaveNFe: "A", DataEmissao: &longe}
	forte := &entity.ItemNFe{ChaveNFe: "B", DataEmissao: &perto, PlacaObservada: "ABC1D23"}

	melhor, pontos := MelhorCandidato(viagem, []*entity.ItemNFe{fraco, forte}, 0, nil)
	require.NotNil(t, melhor)
	assert.Equal(t, "B", melhor.ChaveNFe)
	assert.Equal(t, 50, pontos) // 20 da data + 30 da placa
}

func TestMelhorCandidato_EmpateFicaComOPrimeiro(t *testing.T) {
	viagem := contextoBase().Viagem
	perto := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

	a := &entity.ItemNFe{ChaveNFe: "A", DataEmissao: &perto}
	b := &entity.ItemNFe{ChaveNFe: "B", DataEmissao: &perto}

	melhor, _ := MelhorCandidato(viagem, []*entity.ItemNFe{a, b}, 0, nil)
	require.NotNil(t, melhor)
	assert.Equal(t, "A", melhor.ChaveNFe)
}

func TestMelhorCandidato_ZeroPontosDevolveNil(t *testing.T) {
	viagem := contextoBase().Viagem
	longe := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	item := &entity.ItemNFe{ChaveNFe: "A", DataEmissao: &longe}

	melhor, pontos := MelhorCandidato(viagem, []*entity.ItemNFe{item}, 0, nil)
	assert.Nil(t, melhor)
	assert.Zero(t, pontos)
}
