package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jcandia/frota-fiscal/internal/application/merge"
	"github.com/jcandia/frota-fiscal/internal/application/processamento"
	"github.com/jcandia/frota-fiscal/internal/application/rota"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/geocache"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/mapa"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/ors"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/registros"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/runlog"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/veiculos"
	httpRouter "github.com/jcandia/frota-fiscal/internal/interfaces/http"
	"github.com/jcandia/frota-fiscal/pkg/config"
	"github.com/jcandia/frota-fiscal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicação")

	for _, dir := range []string{cfg.Arquivos.Dir, cfg.Arquivos.MapasDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("criar diretório de artefatos")
		}
	}

	cacheGeo := geocache.Novo(cfg.Arquivos.GeocachePath(), log)
	cadastro := veiculos.Novo(cfg.Arquivos.VeiculosPath(), log)
	trilha := runlog.Nova(cfg.Arquivos.RunLogPath())
	store := registros.Novo(cfg.Arquivos.RegistrosPath())
	mapas := mapa.Novo(cfg.Arquivos.MapasDir())

	// Sem chave da API o serviço de rota degrada para linha reta sobre os
	// pontos que já tenham coordenadas.
	var rotaSvc *rota.Servico
	if cfg.ORS.APIKey != "" {
		cliente, err := ors.NovoCliente(cfg.ORS, cacheGeo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente OpenRouteService")
		}
		rotaSvc = rota.NovoServico(cliente, cliente, cfg.Rota.MaxPontosPorReq)
	} else {
		log.Warn().Msg("ORS_API_KEY ausente; rotas serão estimadas em linha reta")
		rotaSvc = rota.NovoServico(nil, nil, cfg.Rota.MaxPontosPorReq)
	}

	fabricaMerge := func(consulta merge.ConsultaSped) *merge.UseCase {
		return merge.NovoUseCase(rotaSvc, consulta, cadastro, mapas, trilha, log, merge.Opcoes{
			FecharCiclo:       cfg.Rota.FecharCiclo,
			ConsumoKmPorLitro: cfg.Rota.ConsumoKmPorLitro,
		})
	}
	procSvc := processamento.NovoServico(
		fabricaMerge, store, trilha,
		[]processamento.Persistente{cacheGeo},
		log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Processamento: procSvc,
		Veiculos:      cadastro,
		Trilha:        trilha,
		DirEntrada:    cfg.Arquivos.EntradaDir(),
		DirExportacao: cfg.Arquivos.Dir,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("encerramento do servidor")
	}

	if err := cacheGeo.Salvar(); err != nil {
		log.Warn().Err(err).Msg("geocache não gravado no encerramento")
	}

	log.Info().Msg("aplicação encerrada")
}
