package dto

import (
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

// ProcessarRequest dispara um lote sobre um diretório de entrada.
type ProcessarRequest struct {
	Diretorio string `json:"diretorio"`
}

// ProcessarResponse identificador da execução disparada.
type ProcessarResponse struct {
	ExecucaoID string `json:"execucao_id"`
}

// RegistrosResponse listagem do lote consolidado mais recente.
type RegistrosResponse struct {
	Total     int                           `json:"total"`
	Registros []*entity.RegistroConsolidado `json:"registros"`
}

// EditarRotaRequest waypoints e/ou distância manual para uma viagem.
// A chave identifica a viagem (CNPJ emitente|série|número|placa); com
// DistanciaKm informado o cálculo de rota é pulado.
type EditarRotaRequest struct {
	ChaveDedup  string            `json:"chave_dedup"`
	Pontos      []entity.Waypoint `json:"pontos,omitempty"`
	DistanciaKm *float64          `json:"distancia_km,omitempty"`
}

// TrilhaResponse linhas da trilha de cálculo do lote corrente.
type TrilhaResponse struct {
	Caminho string   `json:"caminho"`
	Linhas  []string `json:"linhas"`
}
