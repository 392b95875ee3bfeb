package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemID identidade de uma linha de NF-e: chave de acesso + número do item.
// Os litros de um item nunca podem ser alocados além da quantidade original
// dessa identidade.
type ItemID struct {
	ChaveNFe   string
	NumeroItem int
}

// ItemNFe uma linha de NF-e de compra de combustível (ou de carga). Litros e
// quilômetros ficam em float64 (medidas); valores monetários em decimal.
type ItemNFe struct {
	ChaveNFe    string
	NumeroNFe   string
	Serie       string
	DataEmissao *time.Time

	EmitCNPJ       string
	EmitNome       string
	EmitLogradouro string
	EmitNumero     string
	EmitBairro     string
	EmitUF         string
	EmitCidade     string

	DestCNPJ   string
	DestNome   string
	UFDest     string
	CidadeDest string

	NumeroItem       int
	CodigoProduto    string
	DescricaoProduto string
	NCM              string
	CFOP             string
	Unidade          string

	Quantidade    float64 // litros
	ValorUnitario decimal.Decimal
	ValorTotal    decimal.Decimal

	// Crédito de ICMS estimado na leitura (alíquota por CFOP: 5xxx interna,
	// 6xxx interestadual).
	Aliquota decimal.Decimal
	Credito  decimal.Decimal

	ProdANP   string
	DescANP   string
	UFConsumo string

	// Placa localizada em texto livre (infCpl/infAdFisco).
	PlacaObservada string

	Combustivel bool
}

// ID devolve a identidade composta da linha.
func (i *ItemNFe) ID() ItemID {
	return ItemID{ChaveNFe: i.ChaveNFe, NumeroItem: i.NumeroItem}
}

// EhDiesel informa se a linha é de óleo diesel: família ANP 8201 ou descrição
// contendo DIESEL (sem distinção de caixa).
func (i *ItemNFe) EhDiesel() bool {
	if anp := strings.TrimSpace(i.ProdANP); anp != "" && strings.HasPrefix(anp, "8201") {
		return true
	}
	desc := i.DescricaoProduto
	if desc == "" {
		desc = i.DescANP
	}
	return strings.Contains(strings.ToUpper(desc), "DIESEL")
}

// Descricao devolve a melhor descrição disponível do produto.
func (i *ItemNFe) Descricao() string {
	if i.DescANP != "" {
		return i.DescANP
	}
	return i.DescricaoProduto
}
