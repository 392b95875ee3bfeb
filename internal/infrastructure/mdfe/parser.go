// Package mdfe lê o XML do Manifesto Eletrônico de Documentos Fiscais
// (MDF-e, layout do portal fiscal) e o converte no cabeçalho de viagem usado
// pelo merge. Campos ausentes não são erro: o documento real vem com lacunas
// e o fluxo degrada por fallback.
package mdfe

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

// ParseArquivo lê o MDF-e do caminho indicado.
func ParseArquivo(caminho string) (*entity.Manifesto, error) {
	dados, err := os.ReadFile(caminho)
	if err != nil {
		return nil, fmt.Errorf("ler MDF-e %s: %w", caminho, err)
	}
	m, err := Parse(dados)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caminho, err)
	}
	return m, nil
}

// Parse interpreta o XML do MDF-e.
func Parse(dados []byte) (*entity.Manifesto, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(dados); err != nil {
		return nil, fmt.Errorf("%w: XML do MDF-e ilegível: %v", domain.ErrEntradaInvalida, err)
	}

	ide := doc.FindElement("//ide")
	if ide == nil {
		return nil, fmt.Errorf("%w: MDF-e sem bloco ide", domain.ErrEntradaInvalida)
	}

	m := &entity.Manifesto{
		Numero:           texto(ide, "nMDF"),
		Serie:            texto(ide, "serie"),
		UFIni:            texto(ide, "UFIni"),
		UFFim:            texto(ide, "UFFim"),
		DhEmi:            data(texto(ide, "dhEmi")),
		DhIniViagem:      data(texto(ide, "dhIniViagem")),
		DestinosPorChave: make(map[string]entity.DestinoManifesto),
	}

	// primeira origem de carregamento
	if carrega := doc.FindElement("//infMunCarrega"); carrega != nil {
		m.OrigemCidade = texto(carrega, "xMunCarrega")
		m.OrigemCodMun = inteiro(texto(carrega, "cMunCarrega"))
	}

	if emit := doc.FindElement("//emit"); emit != nil {
		m.EmitCNPJ = texto(emit, "CNPJ")
		m.EmitNome = texto(emit, "xNome")
		if ender := emit.SelectElement("enderEmit"); ender != nil {
			m.EmitUF = texto(ender, "UF")
			m.EmitCidade = texto(ender, "xMun")
		}
	}

	if tracao := doc.FindElement("//veicTracao"); tracao != nil {
		m.Placa = strings.ToUpper(texto(tracao, "placa"))
		m.Renavam = texto(tracao, "RENAVAM")
		m.TpRod = texto(tracao, "tpRod")
		m.TpCar = texto(tracao, "tpCar")
		if cond := tracao.SelectElement("condutor"); cond != nil {
			m.CondutorNome = texto(cond, "xNome")
			m.CondutorCPF = texto(cond, "CPF")
		}
	}

	for _, ufPer := range doc.FindElements("//UFPer") {
		if uf := strings.TrimSpace(ufPer.Text()); uf != "" {
			m.UFsPercurso = append(m.UFsPercurso, uf)
		}
	}

	if tot := doc.FindElement("//tot"); tot != nil {
		m.QtdeNFe = inteiro(texto(tot, "qNFe"))
		if v, err := decimal.NewFromString(normalizarNumero(texto(tot, "vCarga"))); err == nil {
			m.ValorCarga = v
		}
	}

	// infMunDescarga: cada chNFe com cidade/UF de descarga (UF pelo IBGE)
	for _, descarga := range doc.FindElements("//infMunDescarga") {
		codMun := inteiro(texto(descarga, "cMunDescarga"))
		cidade := texto(descarga, "xMunDescarga")
		uf := fiscal.UFPorCodMun(codMun)

		for _, ch := range descarga.FindElements(".//chNFe") {
			chave := fiscal.LimparChave(ch.Text())
			if chave == "" {
				continue
			}
			m.DestinosPorChave[chave] = entity.DestinoManifesto{
				Cidade: cidade,
				UF:     uf,
				CodMun: codMun,
			}
		}
	}

	// chaves soltas fora do bloco de descarga entram sem destino
	for _, ch := range doc.FindElements("//infNFe/chNFe") {
		chave := fiscal.LimparChave(ch.Text())
		if chave == "" {
			continue
		}
		if _, ok := m.DestinosPorChave[chave]; !ok {
			m.DestinosPorChave[chave] = entity.DestinoManifesto{}
		}
	}

	if m.Numero == "" && len(m.DestinosPorChave) == 0 {
		return nil, fmt.Errorf("%w: documento não parece um MDF-e", domain.ErrEntradaInvalida)
	}
	return m, nil
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

// normalizarNumero aceita vírgula decimal, comum em XML emitido fora do
// padrão.
func normalizarNumero(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

// data aceita os formatos de data do layout fiscal (RFC3339 com offset, e a
// variante sem offset de emissores antigos).
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
