package http

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/jcandia/frota-fiscal/internal/application/dto"
	"github.com/jcandia/frota-fiscal/internal/application/processamento"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/exportacao"
)

// ExportacaoHandler gera os CSVs do lote corrente (demonstrativo e totais de
// diesel por nota) e os devolve como download.
type ExportacaoHandler struct {
	svc *processamento.Servico
	dir string
}

// NovoExportacaoHandler constrói o handler; dir é onde os CSVs são gravados.
func NovoExportacaoHandler(svc *processamento.Servico, dir string) *ExportacaoHandler {
	return &ExportacaoHandler{svc: svc, dir: dir}
}

// Demonstrativo exporta o lote consolidado em CSV (ponto e vírgula, pt-BR).
func (h *ExportacaoHandler) Demonstrativo(c *fiber.Ctx) error {
	registros := h.svc.Registros()
	if len(registros) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "nenhum lote processado"})
	}

	caminho := filepath.Join(h.dir, "demonstrativo.csv")
	if err := exportacao.ExportarDemonstrativo(caminho, registros); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Download(caminho, "demonstrativo.csv")
}

// TotaisDiesel exporta o resumo de diesel por nota fiscal do lote corrente.
func (h *ExportacaoHandler) TotaisDiesel(c *fiber.Ctx) error {
	totais := exportacao.TotaisDiesel(h.svc.Itens())
	if len(totais) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "nenhuma nota de diesel no lote corrente"})
	}

	caminho := filepath.Join(h.dir, "totais_diesel.csv")
	if err := exportacao.ExportarTotaisDiesel(caminho, totais); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Download(caminho, "totais_diesel.csv")
}
