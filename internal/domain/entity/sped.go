package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParticipanteSped registro 0150 da EFD: participante da operação com o
// código IBGE do município e o endereço de entrega autoritativo.
type ParticipanteSped struct {
	CodPart    string
	Nome       string
	CodMunIBGE int
	Logradouro string
	Numero     string
	Bairro     string
}

// DocumentoSped registro C100 (modelo 55): documento fiscal escriturado, com
// a direção do movimento. IndOper 0 = entrada, 1 = saída; só saídas valem
// como referência de carga no merge.
type DocumentoSped struct {
	ChaveNFe string
	CodPart  string
	NumDoc   string
	Serie    string
	DtDoc    *time.Time
	Saida    bool
}

// ItemImpostoSped registro C190: totalização por CST/CFOP/alíquota do
// documento pai.
type ItemImpostoSped struct {
	CST           string
	CFOP          string
	ValorICMS     decimal.Decimal
	BaseICMS      decimal.Decimal
	ValorOperacao decimal.Decimal
}

// EnderecoEntrega endereço resolvido via SPED para uma chave de NF-e.
type EnderecoEntrega struct {
	Logradouro string
	Numero     string
	Bairro     string
	Cidade     string
	UF         string
	Nome       string
}

// Linha monta o endereço textual para geocodificação, descartando as partes
// vazias ("Rua X, 120, Dourados, MS").
func (e *EnderecoEntrega) Linha() string {
	partes := make([]string, 0, 4)
	for _, p := range []string{e.Logradouro, e.Numero, e.Cidade, e.UF} {
		if p != "" {
			partes = append(partes, p)
		}
	}
	return strings.Join(partes, ", ")
}
