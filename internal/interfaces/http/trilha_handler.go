package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcandia/frota-fiscal/internal/application/dto"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/runlog"
)

// TrilhaHandler expõe a trilha de cálculo do lote corrente.
type TrilhaHandler struct {
	trilha *runlog.Trilha
}

// NovoTrilhaHandler constrói o handler.
func NovoTrilhaHandler(trilha *runlog.Trilha) *TrilhaHandler {
	return &TrilhaHandler{trilha: trilha}
}

// Ler devolve o caminho do arquivo e as linhas registradas até agora.
func (h *TrilhaHandler) Ler(c *fiber.Ctx) error {
	return c.JSON(dto.TrilhaResponse{Caminho: h.trilha.Caminho(), Linhas: h.trilha.Linhas()})
}
