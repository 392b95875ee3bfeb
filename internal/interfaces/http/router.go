package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jcandia/frota-fiscal/internal/application/processamento"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/runlog"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/veiculos"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	Processamento *processamento.Servico
	Veiculos      *veiculos.Cadastro
	Trilha        *runlog.Trilha
	DirEntrada    string // diretório padrão dos lotes
	DirExportacao string // diretório onde os CSVs são gravados
}

// Router registra as rotas da API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Lotes: disparo assíncrono, andamento e registros consolidados
	procHandler := NovoProcessamentoHandler(deps.Processamento, deps.DirEntrada)
	lotes := api.Group("/processamentos")
	lotes.Post("/", procHandler.Processar)
	lotes.Get("/atual", procHandler.Estado)

	registros := api.Group("/registros")
	registros.Get("/", procHandler.Registros)
	registros.Put("/rota", procHandler.EditarRota)

	// Exportações (CSV do lote corrente)
	expHandler := NovoExportacaoHandler(deps.Processamento, deps.DirExportacao)
	exportacoes := api.Group("/exportacoes")
	exportacoes.Get("/demonstrativo", expHandler.Demonstrativo)
	exportacoes.Get("/totais-diesel", expHandler.TotaisDiesel)

	// Cadastro local de veículos
	veiculoHandler := NovoVeiculoHandler(deps.Veiculos)
	frota := api.Group("/veiculos")
	frota.Get("/", veiculoHandler.Listar)
	frota.Post("/", veiculoHandler.Cadastrar)

	// Trilha de cálculo do lote corrente
	trilhaHandler := NovoTrilhaHandler(deps.Trilha)
	api.Get("/trilha", trilhaHandler.Ler)
}
