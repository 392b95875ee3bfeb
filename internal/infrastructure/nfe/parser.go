// Package nfe lê o XML da Nota Fiscal Eletrônica (layout do portal fiscal) e
// produz uma linha por item. O crédito de ICMS é estimado já na leitura, pela
// família do CFOP; a placa abastecida costuma vir em texto livre (infCpl).
package nfe

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/fiscal"
)

// Códigos ANP frequentes nos arquivos reais; o descANP às vezes repete o
// código em vez do nome.
var nomesANP = map[string]string{
	"820101034": "OLEO DIESEL B S10 - COMUM",
	"420101005": "ÓLEO DIESEL A S1800 NÃO RODOVIÁRIO - ADITIVADO",
}

// ParseArquivo lê a NF-e do caminho indicado.
func ParseArquivo(caminho string) ([]*entity.ItemNFe, error) {
	dados, err := os.ReadFile(caminho)
	if err != nil {
		return nil, fmt.Errorf("ler NF-e %s: %w", caminho, err)
	}
	itens, err := Parse(dados)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caminho, err)
	}
	return itens, nil
}

// Parse interpreta o XML da NF-e, uma linha por det. Nota sem det devolve uma
// linha só de cabeçalho, para que o documento não suma do demonstrativo.
func Parse(dados []byte) ([]*entity.ItemNFe, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(dados); err != nil {
		return nil, fmt.Errorf("%w: XML da NF-e ilegível: %v", domain.ErrEntradaInvalida, err)
	}

	base := entity.ItemNFe{}

	// chave: protNFe quando existir, senão o atributo Id do infNFe
	if ch := doc.FindElement("//chNFe"); ch != nil {
		base.ChaveNFe = fiscal.LimparChave(ch.Text())
	}
	if base.ChaveNFe == "" {
		if inf := doc.FindElement("//infNFe"); inf != nil {
			base.ChaveNFe = fiscal.LimparChave(inf.SelectAttrValue("Id", ""))
		}
	}

	ide := doc.FindElement("//ide")
	if ide == nil {
		return nil, fmt.Errorf("%w: NF-e sem bloco ide", domain.ErrEntradaInvalida)
	}
	base.NumeroNFe = texto(ide, "nNF")
	base.Serie = texto(ide, "serie")
	base.DataEmissao = data(texto(ide, "dhEmi"))
	if base.DataEmissao == nil {
		base.DataEmissao = data(texto(ide, "dEmi")) // layout antigo
	}

	if emit := doc.FindElement("//emit"); emit != nil {
		base.EmitCNPJ = texto(emit, "CNPJ")
		base.EmitNome = texto(emit, "xNome")
		if ender := emit.SelectElement("enderEmit"); ender != nil {
			base.EmitLogradouro = texto(ender, "xLgr")
			base.EmitNumero = texto(ender, "nro")
			base.EmitBairro = texto(ender, "xBairro")
			base.EmitUF = texto(ender, "UF")
			base.EmitCidade = texto(ender, "xMun")
		}
	}

	if dest := doc.FindElement("//dest"); dest != nil {
		base.DestCNPJ = texto(dest, "CNPJ")
		base.DestNome = texto(dest, "xNome")
		if ender := dest.SelectElement("enderDest"); ender != nil {
			base.UFDest = texto(ender, "UF")
			base.CidadeDest = texto(ender, "xMun")
		}
	}

	if infCpl := doc.FindElement("//infCpl"); infCpl != nil {
		base.PlacaObservada = fiscal.ExtrairPlaca(infCpl.Text())
	}
	if base.PlacaObservada == "" {
		if infAd := doc.FindElement("//infAdFisco"); infAd != nil {
			base.PlacaObservada = fiscal.ExtrairPlaca(infAd.Text())
		}
	}

	var itens []*entity.ItemNFe
	for _, det := range doc.FindElements("//det") {
		item := base
		item.NumeroItem = inteiro(det.SelectAttrValue("nItem", ""))

		prod := det.SelectElement("prod")
		if prod == nil {
			continue
		}
		item.CodigoProduto = texto(prod, "cProd")
		item.DescricaoProduto = texto(prod, "xProd")
		item.NCM = texto(prod, "NCM")
		item.CFOP = texto(prod, "CFOP")
		item.Unidade = texto(prod, "uCom")
		item.Quantidade = numero(texto(prod, "qCom"))
		item.ValorUnitario = valor(texto(prod, "vUnCom"))
		item.ValorTotal = valor(texto(prod, "vProd"))

		// crédito estimado pela família do CFOP: 5xxx interna, 6xxx interestadual
		switch {
		case strings.HasPrefix(item.CFOP, "5"):
			item.Aliquota = decimal.NewFromFloat(0.17)
		case strings.HasPrefix(item.CFOP, "6"):
			item.Aliquota = decimal.NewFromFloat(0.07)
		}
		item.Credito = item.ValorTotal.Mul(item.Aliquota).Round(2)

		if comb := prod.SelectElement("comb"); comb != nil {
			item.ProdANP = texto(comb, "cProdANP")
			item.DescANP = melhorDescricao(texto(comb, "descANP"), item.DescricaoProduto)
			item.UFConsumo = texto(comb, "UFCons")
		}

		item.Combustivel = ehCombustivel(&item)
		itens = append(itens, &item)
	}

	if len(itens) == 0 {
		linha := base
		itens = append(itens, &linha)
	}
	return itens, nil
}

// melhorDescricao resolve descANP quando o emissor grava o código ANP no
// lugar do nome.
func melhorDescricao(descANP, xProd string) string {
	if nome := resolverANP(descANP); nome != "" {
		return nome
	}
	if nome := resolverANP(xProd); nome != "" {
		return nome
	}
	if descANP != "" {
		return descANP
	}
	return xProd
}

func resolverANP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if nome, ok := nomesANP[s]; ok {
		return nome
	}
	// 9 dígitos é provavelmente um código ANP desconhecido, não uma descrição
	if len(s) == 9 && soDigitos(s) {
		return ""
	}
	return s
}

func soDigitos(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func ehCombustivel(i *entity.ItemNFe) bool {
	if i.ProdANP != "" {
		return true
	}
	if strings.HasPrefix(i.NCM, "2710") {
		return true
	}
	desc := strings.ToUpper(i.DescricaoProduto)
	return strings.Contains(desc, "DIESEL") ||
		strings.Contains(desc, "GASOL") ||
		strings.Contains(desc, "ETANOL")
}

func texto(el *etree.Element, tag string) string {
	if filho := el.SelectElement(tag); filho != nil {
		return strings.TrimSpace(filho.Text())
	}
	return ""
}

func inteiro(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func numero(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return v
}

func valor(s string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return v
}

func data(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
