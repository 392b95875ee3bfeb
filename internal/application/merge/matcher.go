package merge

import (
	"math"
	"strings"
	"time"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/fiscal"
	"github.com/jcandia/frota-fiscal/pkg/texto"
)

// ContextoMatch dados avaliados pelos critérios de pontuação ao decidir se
// uma NF-e de combustível sem vínculo declarado pertence a uma viagem.
type ContextoMatch struct {
	Viagem          *entity.Manifesto
	Item            *entity.ItemNFe
	LitrosEstimados float64 // consumo estimado da viagem; 0 = sem distância
	Pontos          []entity.Waypoint
}

// CriterioMatch um predicado e o peso que ele adiciona quando verdadeiro.
type CriterioMatch struct {
	Nome     string
	Peso     int
	Presente func(c *ContextoMatch) bool
}

// TabelaCriterios os critérios na ordem de avaliação. Mantida como dado para
// que os pesos sejam testáveis e ajustáveis sem tocar no fluxo de matching.
// Os pares data/litros são mutuamente exclusivos: a janela larga só pontua
// quando a estreita não pontuou.
var TabelaCriterios = []CriterioMatch{
	{
		Nome: "cidade do fornecedor na rota",
		Peso: 10,
		Presente: func(c *ContextoMatch) bool {
			cidade := strings.TrimSpace(c.Item.EmitCidade)
			if cidade == "" {
				return false
			}
			alvo := strings.ToUpper(texto.SemAcentos(cidade))
			for _, p := range c.Pontos {
				if strings.Contains(strings.ToUpper(texto.SemAcentos(p.Endereco)), alvo) {
					return true
				}
			}
			return false
		},
	},
	{
		Nome:     "emissão até 1 dia do início da viagem",
		Peso:     20,
		Presente: func(c *ContextoMatch) bool { return dentroDeDias(c, 1) },
	},
	{
		Nome:     "emissão até 3 dias do início da viagem",
		Peso:     10,
		Presente: func(c *ContextoMatch) bool { return !dentroDeDias(c, 1) && dentroDeDias(c, 3) },
	},
	{
		Nome:     "litros estimados até 10% dos faturados",
		Peso:     20,
		Presente: func(c *ContextoMatch) bool { return litrosDentroDe(c, 0.10) },
	},
	{
		Nome:     "litros estimados até 20% dos faturados",
		Peso:     10,
		Presente: func(c *ContextoMatch) bool { return !litrosDentroDe(c, 0.10) && litrosDentroDe(c, 0.20) },
	},
	{
		Nome: "placa idêntica",
		Peso: 30,
		Presente: func(c *ContextoMatch) bool {
			return fiscal.PlacasIguais(c.Item.PlacaObservada, c.Viagem.Placa)
		},
	},
	{
		Nome: "custo estimado até 10% do valor da nota",
		Peso: 15,
		Presente: func(c *ContextoMatch) bool {
			if c.LitrosEstimados <= 0 || c.Item.ValorUnitario.IsZero() || c.Item.ValorTotal.IsZero() {
				return false
			}
			vu, _ := c.Item.ValorUnitario.Float64()
			vt, _ := c.Item.ValorTotal.Float64()
			custoEstimado := c.LitrosEstimados * vu
			return math.Abs(custoEstimado-vt) <= 0.10*vt
		},
	},
}

// Pontuar soma os pesos dos critérios presentes e devolve também os nomes
// acertados para o log.
func Pontuar(c *ContextoMatch) (int, []string) {
	total := 0
	var acertos []string
	for _, cr := range TabelaCriterios {
		if cr.Presente(c) {
			total += cr.Peso
			acertos = append(acertos, cr.Nome)
		}
	}
	return total, acertos
}

// MelhorCandidato avalia os itens candidatos na ordem recebida e devolve o
// de maior pontuação estritamente positiva. Empate fica com o primeiro
// encontrado; nenhum candidato acima de zero devolve nil.
func MelhorCandidato(viagem *entity.Manifesto, candidatos []*entity.ItemNFe, litrosEstimados float64, pontos []entity.Waypoint) (*entity.ItemNFe, int) {
	var melhor *entity.ItemNFe
	melhorPontos := 0

	for _, item := range candidatos {
		p, _ := Pontuar(&ContextoMatch{
			Viagem:          viagem,
			Item:            item,
			LitrosEstimados: litrosEstimados,
			Pontos:          pontos,
		})
		if p > melhorPontos {
			melhorPontos = p
			melhor = item
		}
	}
	return melhor, melhorPontos
}

func dentroDeDias(c *ContextoMatch, dias float64) bool {
	ref := c.Viagem.DataReferencia()
	if ref == nil || c.Item.DataEmissao == nil {
		return false
	}
	horas := math.Abs(c.Item.DataEmissao.Sub(*ref).Hours())
	return horas <= dias*24
}

func litrosDentroDe(c *ContextoMatch, fracao float64) bool {
	if c.LitrosEstimados <= 0 || c.Item.Quantidade <= 0 {
		return false
	}
	return math.Abs(c.LitrosEstimados-c.Item.Quantidade) <= fracao*c.Item.Quantidade
}

// mais recente entre duas datas; nil perde sempre.
func maisRecente(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
