package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Valores do campo Vinculada (NF-e de combustível associada à viagem).
const (
	VinculadaSim = "Sim"
	VinculadaNao = "Não"
)

// RegistroConsolidado uma linha do demonstrativo: a viagem com distância
// calculada, litros alocados e crédito apurado. Criado ao fim do merge e
// nunca mais alterado, exceto pela edição de rota disparada pelo operador
// (que reprocessa a alocação de todas as viagens).
type RegistroConsolidado struct {
	// Veículo utilizado
	Modelo  string `json:"modelo,omitempty"`
	Tipo    string `json:"tipo,omitempty"`
	Renavam string `json:"renavam,omitempty"`
	Placa   string `json:"placa,omitempty"`

	// Trajeto
	MdfeNumero            string     `json:"mdfe_numero,omitempty"`
	Data                  *time.Time `json:"data,omitempty"`
	Roteiro               string     `json:"roteiro,omitempty"`
	DistanciaPercorridaKm *float64   `json:"distancia_percorrida_km,omitempty"`

	// Carga / NF-e
	Vinculada   string     `json:"vinculada"`
	NFeNumero   string     `json:"nfe_numero,omitempty"`
	DataEmissao *time.Time `json:"data_emissao,omitempty"`

	// Combustível
	QuantidadeLitros   *float64 `json:"quantidade_litros,omitempty"`
	EspecieCombustivel string   `json:"especie_combustivel,omitempty"`

	// Valores
	ValorUnitario         *decimal.Decimal `json:"valor_unitario,omitempty"`
	ValorTotalCombustivel *decimal.Decimal `json:"valor_total_combustivel,omitempty"`

	// Crédito a apropriar
	AliquotaCredito *decimal.Decimal `json:"aliquota_credito,omitempty"`
	ValorCredito    *decimal.Decimal `json:"valor_credito,omitempty"`

	// Nota de aquisição do combustível
	NFeAquisicaoNumero string     `json:"nfe_aquisicao_numero,omitempty"`
	DataAquisicao      *time.Time `json:"data_aquisicao,omitempty"`

	// Apoio / auditoria
	ChaveDedup string `json:"chave_dedup,omitempty"`
	ChavesNFe  string `json:"chaves_nfe,omitempty"`
	UFEmit     string `json:"uf_emit,omitempty"`
	UFDest     string `json:"uf_dest,omitempty"`
	CidadeEmit string `json:"cidade_emit,omitempty"`
	CidadeDest string `json:"cidade_dest,omitempty"`

	// Escrituração (C190)
	CST            string           `json:"cst,omitempty"`
	CFOP           string           `json:"cfop,omitempty"`
	ValorICMS      *decimal.Decimal `json:"valor_icms,omitempty"`
	BaseICMS       *decimal.Decimal `json:"base_icms,omitempty"`
	TotalDocumento *decimal.Decimal `json:"total_documento,omitempty"`

	// Endereço de entrega (SPED)
	Logradouro string `json:"logradouro,omitempty"`
	Numero     string `json:"numero,omitempty"`
	Bairro     string `json:"bairro,omitempty"`

	// Fornecedor do combustível
	FornecedorCNPJ     string `json:"fornecedor_cnpj,omitempty"`
	FornecedorNome     string `json:"fornecedor_nome,omitempty"`
	FornecedorEndereco string `json:"fornecedor_endereco,omitempty"`

	// Artefatos do cálculo
	MapaPath  string     `json:"mapa_path,omitempty"`
	Waypoints []Waypoint `json:"waypoints,omitempty"`
	Avisos    string     `json:"avisos,omitempty"`
}
