// Package exportacao grava os artefatos de saída em CSV: o demonstrativo
// consolidado por viagem e a aba de totais de diesel por nota de aquisição.
// Separador ponto e vírgula e decimais com vírgula, como as planilhas
// fiscais brasileiras esperam.
package exportacao

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

var cabecalhoDemonstrativo = []string{
	"Modelo", "Tipo", "Renavam", "Placa",
	"MDFe", "Data", "Roteiro", "Distancia Percorrida (km)",
	"Vinculada", "NFe", "Data Emissao",
	"Quantidade (L)", "Especie Combustivel",
	"Valor Unitario", "Valor Total Combustivel",
	"Aliquota Credito", "Valor Credito",
	"NFe Aquisicao", "Data Aquisicao",
	"Chaves NFe", "UF Emit", "UF Dest", "Cidade Emit", "Cidade Dest",
	"CST", "CFOP", "Valor ICMS", "Base ICMS", "Total Documento",
	"Logradouro", "Numero", "Bairro",
	"Fornecedor CNPJ", "Fornecedor Nome", "Fornecedor Endereco",
	"Avisos",
}

// ExportarDemonstrativo grava o CSV do demonstrativo no caminho indicado.
func ExportarDemonstrativo(caminho string, registros []*entity.RegistroConsolidado) error {
	f, err := criar(caminho)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write(cabecalhoDemonstrativo); err != nil {
		return fmt.Errorf("escrever cabeçalho: %w", err)
	}
	for _, r := range registros {
		linha := []string{
			r.Modelo, r.Tipo, r.Renavam, r.Placa,
			r.MdfeNumero, dataBr(r.Data), r.Roteiro, flutuante(r.DistanciaPercorridaKm, 1),
			r.Vinculada, r.NFeNumero, dataBr(r.DataEmissao),
			flutuante(r.QuantidadeLitros, 3), r.EspecieCombustivel,
			dinheiro(r.ValorUnitario), dinheiro(r.ValorTotalCombustivel),
			dinheiro(r.AliquotaCredito), dinheiro(r.ValorCredito),
			r.NFeAquisicaoNumero, dataBr(r.DataAquisicao),
			r.ChavesNFe, r.UFEmit, r.UFDest, r.CidadeEmit, r.CidadeDest,
			r.CST, r.CFOP, dinheiro(r.ValorICMS), dinheiro(r.BaseICMS), dinheiro(r.TotalDocumento),
			r.Logradouro, r.Numero, r.Bairro,
			r.FornecedorCNPJ, r.FornecedorNome, r.FornecedorEndereco,
			r.Avisos,
		}
		if err := w.Write(linha); err != nil {
			return fmt.Errorf("escrever registro: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

// TotalDiesel agregado de uma nota de aquisição de diesel.
type TotalDiesel struct {
	ChaveNFe    string
	NumeroNFe   string
	DataEmissao *time.Time
	Litros      float64
	ValorTotal  decimal.Decimal
	ValorMedio  decimal.Decimal
	Itens       int
}

// TotaisDiesel agrupa os itens de diesel por chave de NF-e, em ordem de data
// de emissão.
func TotaisDiesel(itens []*entity.ItemNFe) []TotalDiesel {
	porChave := make(map[string]*TotalDiesel)
	var ordem []string

	for _, it := range itens {
		if !it.EhDiesel() {
			continue
		}
		t, ok := porChave[it.ChaveNFe]
		if !ok {
			t = &TotalDiesel{ChaveNFe: it.ChaveNFe, NumeroNFe: it.NumeroNFe, DataEmissao: it.DataEmissao}
			porChave[it.ChaveNFe] = t
			ordem = append(ordem, it.ChaveNFe)
		}
		t.Litros += it.Quantidade
		t.ValorTotal = t.ValorTotal.Add(it.ValorUnitario.Mul(decimal.NewFromFloat(it.Quantidade)))
		t.Itens++
	}

	out := make([]TotalDiesel, 0, len(porChave))
	for _, ch := range ordem {
		t := porChave[ch]
		t.ValorTotal = t.ValorTotal.Round(2)
		if t.Litros > 0 {
			t.ValorMedio = t.ValorTotal.Div(decimal.NewFromFloat(t.Litros)).Round(4)
		}
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DataEmissao, out[j].DataEmissao
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
	return out
}

// ExportarTotaisDiesel grava o CSV de totais por nota de aquisição.
func ExportarTotaisDiesel(caminho string, totais []TotalDiesel) error {
	f, err := criar(caminho)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write([]string{"Chave", "Numero", "Data Emissao", "Litros", "Valor Total", "Valor Unit Medio", "Itens"}); err != nil {
		return fmt.Errorf("escrever cabeçalho: %w", err)
	}
	for _, t := range totais {
		litros := t.Litros
		linha := []string{
			t.ChaveNFe, t.NumeroNFe, dataBr(t.DataEmissao),
			flutuante(&litros, 6),
			virgula(t.ValorTotal.StringFixed(2)),
			virgula(t.ValorMedio.StringFixed(4)),
			fmt.Sprintf("%d", t.Itens),
		}
		if err := w.Write(linha); err != nil {
			return fmt.Errorf("escrever total: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func criar(caminho string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(caminho), 0o755); err != nil {
		return nil, fmt.Errorf("criar diretório de exportação: %w", err)
	}
	f, err := os.Create(caminho)
	if err != nil {
		return nil, fmt.Errorf("criar %s: %w", caminho, err)
	}
	return f, nil
}

func dataBr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

func flutuante(v *float64, casas int) string {
	if v == nil {
		return ""
	}
	return virgula(fmt.Sprintf("%.*f", casas, *v))
}

func dinheiro(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return virgula(d.StringFixed(2))
}

// virgula troca o separador decimal para a convenção pt-BR.
func virgula(s string) string {
	return strings.ReplaceAll(s, ".", ",")
}
