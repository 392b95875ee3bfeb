package dto

import "github.com/jcandia/frota-fiscal/internal/domain/entity"

// CadastrarVeiculoRequest dados do veículo a cadastrar (upsert por placa).
type CadastrarVeiculoRequest struct {
	Placa   string `json:"placa"`
	Renavam string `json:"renavam,omitempty"`
	Modelo  string `json:"modelo,omitempty"`
	Tipo    string `json:"tipo,omitempty"`
}

// VeiculosResponse listagem do cadastro local.
type VeiculosResponse struct {
	Total    int              `json:"total"`
	Veiculos []entity.Veiculo `json:"veiculos"`
}
