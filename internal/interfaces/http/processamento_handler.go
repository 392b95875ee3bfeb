package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jcandia/frota-fiscal/internal/application/dto"
	"github.com/jcandia/frota-fiscal/internal/application/processamento"
	"github.com/jcandia/frota-fiscal/internal/domain"
)

// ProcessamentoHandler maneja o ciclo do lote: disparo, andamento, registros
// consolidados e edição de rota.
type ProcessamentoHandler struct {
	svc        *processamento.Servico
	dirEntrada string
}

// NovoProcessamentoHandler constrói o handler. dirEntrada é o diretório
// padrão quando a requisição não informa um.
func NovoProcessamentoHandler(svc *processamento.Servico, dirEntrada string) *ProcessamentoHandler {
	return &ProcessamentoHandler{svc: svc, dirEntrada: dirEntrada}
}

// Processar dispara um lote em segundo plano e devolve 202 com o id da
// execução. Um lote em andamento devolve 409.
func (h *ProcessamentoHandler) Processar(c *fiber.Ctx) error {
	var in dto.ProcessarRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
		}
	}
	dir := in.Diretorio
	if dir == "" {
		dir = h.dirEntrada
	}
	if dir == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "diretorio é requerido"})
	}

	id, err := h.svc.Processar(dir)
	if err != nil {
		if errors.Is(err, domain.ErrProcessamentoAtivo) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "BUSY", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.ProcessarResponse{ExecucaoID: id.String()})
}

// Estado instantâneo da execução corrente (ou da última concluída).
func (h *ProcessamentoHandler) Estado(c *fiber.Ctx) error {
	exec, ok := h.svc.Estado()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "nenhum processamento nesta sessão"})
	}
	return c.JSON(exec)
}

// Registros o lote consolidado mais recente.
func (h *ProcessamentoHandler) Registros(c *fiber.Ctx) error {
	registros := h.svc.Registros()
	return c.JSON(dto.RegistrosResponse{Total: len(registros), Registros: registros})
}

// EditarRota grava waypoints e/ou distância manual de uma viagem e reprocessa
// o lote inteiro, devolvendo os registros recalculados.
func (h *ProcessamentoHandler) EditarRota(c *fiber.Ctx) error {
	var in dto.EditarRotaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	if in.ChaveDedup == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "chave_dedup é requerida"})
	}
	if len(in.Pontos) == 0 && in.DistanciaKm == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "informe pontos ou distancia_km"})
	}

	lote, err := h.svc.EditarRota(in.ChaveDedup, in.Pontos, in.DistanciaKm)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProcessamentoAtivo):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "BUSY", Message: err.Error()})
		case errors.Is(err, domain.ErrNaoEncontrado):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		}
	}
	return c.JSON(dto.RegistrosResponse{Total: len(lote), Registros: lote})
}
