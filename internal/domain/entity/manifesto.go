package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DestinoManifesto destino declarado no MDF-e para uma chave de NF-e
// (infMunDescarga). A UF vem do código IBGE do município.
type DestinoManifesto struct {
	Cidade string
	UF     string
	CodMun int
}

// Manifesto cabeçalho de uma viagem (MDF-e): veículo, trajeto e as chaves das
// NF-e de carga com seus destinos declarados. Criado uma única vez pelo parser;
// imutável depois, exceto pela distância informada manualmente pelo operador.
type Manifesto struct {
	Numero string
	Serie  string

	EmitCNPJ   string
	EmitNome   string
	EmitUF     string
	EmitCidade string

	UFIni string
	UFFim string

	OrigemCidade string
	OrigemCodMun int

	DhEmi       *time.Time
	DhIniViagem *time.Time

	Placa        string
	Renavam      string
	TpRod        string
	TpCar        string
	CondutorNome string
	CondutorCPF  string

	QtdeNFe    int
	ValorCarga decimal.Decimal

	UFsPercurso []string

	// chave NF-e -> destino declarado
	DestinosPorChave map[string]DestinoManifesto

	// Distância informada pelo operador; prevalece sobre o cálculo por API.
	DistanciaManualKm *float64
}

// DataReferencia devolve o início da viagem, com fallback para a emissão.
func (m *Manifesto) DataReferencia() *time.Time {
	if m.DhIniViagem != nil {
		return m.DhIniViagem
	}
	return m.DhEmi
}

// ChaveDedup identidade composta da viagem; manifestos repetidos num mesmo
// lote são detectados por ela e ignorados.
func (m *Manifesto) ChaveDedup() string {
	return fmt.Sprintf("%s|%s|%s|%s",
		strings.TrimSpace(m.EmitCNPJ),
		strings.TrimSpace(m.Serie),
		strings.TrimSpace(m.Numero),
		strings.ToUpper(strings.TrimSpace(m.Placa)),
	)
}

// Chaves devolve as chaves de NF-e declaradas, em ordem estável.
func (m *Manifesto) Chaves() []string {
	out := make([]string, 0, len(m.DestinosPorChave))
	for ch := range m.DestinosPorChave {
		out = append(out, ch)
	}
	sort.Strings(out) // a ordem dos mapas do Go não é estável
	return out
}
