package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcandia/frota-fiscal/internal/application/dto"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/veiculos"
)

// VeiculoHandler maneja o cadastro local de veículos (modelo e tipo exibidos
// no demonstrativo).
type VeiculoHandler struct {
	cadastro *veiculos.Cadastro
}

// NovoVeiculoHandler constrói o handler.
func NovoVeiculoHandler(cadastro *veiculos.Cadastro) *VeiculoHandler {
	return &VeiculoHandler{cadastro: cadastro}
}

// Listar devolve todos os veículos cadastrados.
func (h *VeiculoHandler) Listar(c *fiber.Ctx) error {
	lista := h.cadastro.Listar()
	return c.JSON(dto.VeiculosResponse{Total: len(lista), Veiculos: lista})
}

// Cadastrar insere ou atualiza um veículo pela placa e persiste o cadastro.
func (h *VeiculoHandler) Cadastrar(c *fiber.Ctx) error {
	var in dto.CadastrarVeiculoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	if in.Placa == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "placa é requerida"})
	}

	v := entity.Veiculo{Placa: in.Placa, Renavam: in.Renavam, Modelo: in.Modelo, Tipo: in.Tipo}
	if err := h.cadastro.Cadastrar(v); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	if err := h.cadastro.Salvar(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}
