// Package alocacao distribui litros de diesel das NF-e entre as viagens sem
// nunca exceder o saldo de cada item. O saldo é um recurso único, mutável e
// consumido em ordem FIFO: chamadas sucessivas de Alocar sobre o mesmo
// alocador são estritamente aditivas — litros já comprometidos com uma viagem
// não voltam a ser oferecidos.
package alocacao

import (
	"math"
	"sort"
	"time"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

// epsilon tolerância para comparações de saldo com zero.
const epsilon = 1e-6

// Alocacao litros retirados de um item para uma viagem.
type Alocacao struct {
	Item   *entity.ItemNFe
	Litros float64
}

// Alocador mantém o razão de saldos por identidade de item. Construído uma
// vez por lote; a edição de rota exige reconstruí-lo do zero e reprocessar
// todas as viagens (o razão é compartilhado e dependente de ordem).
type Alocador struct {
	itens  map[entity.ItemID]*entity.ItemNFe
	saldos map[entity.ItemID]float64
	ordem  []entity.ItemID // FIFO: data de emissão asc (sem data por último), número da NF-e, número do item
}

// NovoAlocador filtra os itens de diesel com quantidade positiva e inicializa
// cada saldo com a quantidade integral do item.
func NovoAlocador(itens []*entity.ItemNFe) *Alocador {
	a := &Alocador{
		itens:  make(map[entity.ItemID]*entity.ItemNFe),
		saldos: make(map[entity.ItemID]float64),
	}
	for _, it := range itens {
		if it == nil || !it.EhDiesel() || it.Quantidade <= 0 {
			continue
		}
		id := it.ID()
		a.itens[id] = it
		a.saldos[id] = it.Quantidade
		a.ordem = append(a.ordem, id)
	}

	sort.SliceStable(a.ordem, func(i, j int) bool {
		x, y := a.itens[a.ordem[i]], a.itens[a.ordem[j]]
		dx, dy := dataOuMax(x.DataEmissao), dataOuMax(y.DataEmissao)
		if !dx.Equal(dy) {
			return dx.Before(dy)
		}
		if x.NumeroNFe != y.NumeroNFe {
			return x.NumeroNFe < y.NumeroNFe
		}
		return x.NumeroItem < y.NumeroItem
	})

	return a
}

// Alocar retira até alvoLitros do saldo disponível, consumindo os itens na
// ordem FIFO e permitindo uso parcial. Alvo nulo ou não positivo devolve
// lista vazia sem tocar nos saldos. Alvo maior que o disponível devolve a
// alocação parcial possível — nunca é erro.
func (a *Alocador) Alocar(alvoLitros *float64) []Alocacao {
	var out []Alocacao
	if alvoLitros == nil || *alvoLitros <= 0 {
		return out
	}

	restante := *alvoLitros
	for _, id := range a.ordem {
		if restante <= epsilon {
			break
		}
		saldo := a.saldos[id]
		if saldo <= epsilon {
			continue
		}
		usar := math.Min(restante, saldo)
		restante -= usar
		a.saldos[id] = saldo - usar
		out = append(out, Alocacao{Item: a.itens[id], Litros: arredondar6(usar)})
	}
	return out
}

// ConsumirChave zera o saldo de todos os itens de uma chave de NF-e e devolve
// os litros retirados. Usado quando um vínculo fora do razão (matching por
// pontuação) compromete a nota inteira com uma viagem: o saldo dela não pode
// voltar a ser oferecido pelas chamadas seguintes de Alocar.
func (a *Alocador) ConsumirChave(chaveNFe string) float64 {
	var consumido float64
	for id, saldo := range a.saldos {
		if id.ChaveNFe != chaveNFe || saldo <= epsilon {
			continue
		}
		consumido += saldo
		a.saldos[id] = 0
	}
	return arredondar6(consumido)
}

// SaldoItem devolve o saldo atual de um item, ou 0 se desconhecido.
func (a *Alocador) SaldoItem(chaveNFe string, numeroItem int) float64 {
	return a.saldos[entity.ItemID{ChaveNFe: chaveNFe, NumeroItem: numeroItem}]
}

// SaldoTotal soma os litros ainda disponíveis em todos os itens.
func (a *Alocador) SaldoTotal() float64 {
	var total float64
	for _, s := range a.saldos {
		total += s
	}
	return total
}

func dataOuMax(t *time.Time) time.Time {
	if t == nil {
		// sem data ordena por último
		return time.Unix(1<<62-1, 0)
	}
	return *t
}

func arredondar6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
