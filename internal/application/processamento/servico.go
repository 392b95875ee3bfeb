// Package processamento orquestra um lote completo: varre os arquivos de
// entrada (MDF-e, NF-e, EFD), roda o merge em segundo plano e publica o
// andamento para a API. Um lote por vez; a edição de rota reaproveita os
// documentos do último lote e reprocessa tudo.
package processamento

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcandia/frota-fiscal/internal/application/merge"
	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/mdfe"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/nfe"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/runlog"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/sped"
	"github.com/jcandia/frota-fiscal/pkg/logger"
)

// Estados de uma execução.
const (
	EstadoExecutando = "executando"
	EstadoConcluido  = "concluido"
	EstadoErro       = "erro"
)

// Execucao instantâneo do andamento de um lote.
type Execucao struct {
	ID         uuid.UUID  `json:"id"`
	Estado     string     `json:"estado"`
	Percentual int        `json:"percentual"`
	Mensagem   string     `json:"mensagem"`
	Inicio     time.Time  `json:"inicio"`
	Fim        *time.Time `json:"fim,omitempty"`
	Registros  int        `json:"registros"`
}

// ArmazenadorRegistros persistência do lote consolidado.
type ArmazenadorRegistros interface {
	Gravar(lote []*entity.RegistroConsolidado) error
	Carregar() ([]*entity.RegistroConsolidado, error)
}

// Persistente artefato que sabe se gravar ao fim do lote (geocache, trilha).
type Persistente interface {
	Salvar() error
}

// Servico o orquestrador de lotes. Os documentos do último lote ficam em
// memória para o reprocessamento disparado pela edição de rota.
type Servico struct {
	merge   *merge.UseCase
	base    *baseSped
	store   ArmazenadorRegistros
	trilha  *runlog.Trilha
	posLote []Persistente
	log     *logger.Logger

	mu         sync.Mutex
	atual      *Execucao
	manifestos []*entity.Manifesto
	itens      []*entity.ItemNFe
	edicoes    map[string][]entity.Waypoint
	registros  []*entity.RegistroConsolidado
}

// baseSped guarda a base EFD do lote corrente; trocada inteira a cada lote.
type baseSped struct {
	mu   sync.RWMutex
	base *sped.Base
}

func (b *baseSped) trocar(novo *sped.Base) {
	b.mu.Lock()
	b.base = novo
	b.mu.Unlock()
}

func (b *baseSped) EnderecoPorChave(chave string) (*entity.EnderecoEntrega, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.base == nil {
		return nil, false
	}
	return b.base.EnderecoPorChave(chave)
}

func (b *baseSped) DocumentoPorChave(chave string) (*entity.DocumentoSped, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.base == nil {
		return nil, false
	}
	return b.base.DocumentoPorChave(chave)
}

func (b *baseSped) ImpostosPorChave(chave string) []entity.ItemImpostoSped {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.base == nil {
		return nil
	}
	return b.base.ImpostosPorChave(chave)
}

// NovoServico monta o orquestrador. fabricaMerge recebe a consulta SPED do
// lote porque a base EFD muda a cada processamento.
func NovoServico(
	fabricaMerge func(consulta merge.ConsultaSped) *merge.UseCase,
	store ArmazenadorRegistros,
	trilha *runlog.Trilha,
	posLote []Persistente,
	log *logger.Logger,
) *Servico {
	base := &baseSped{}
	s := &Servico{
		merge:   fabricaMerge(base),
		base:    base,
		store:   store,
		trilha:  trilha,
		posLote: posLote,
		log:     log,
		edicoes: make(map[string][]entity.Waypoint),
	}

	// lote anterior, se houver, volta a ficar disponível para consulta
	if anteriores, err := store.Carregar(); err == nil {
		s.registros = anteriores
	} else {
		log.Warn().Err(err).Msg("registros do lote anterior não carregados")
	}
	return s
}

// Processar dispara um lote em segundo plano sobre o diretório de entrada e
// devolve o identificador da execução. Um lote em andamento recusa o próximo.
func (s *Servico) Processar(dirEntrada string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.atual != nil && s.atual.Estado == EstadoExecutando {
		return uuid.Nil, fmt.Errorf("%w: execução %s em andamento", domain.ErrProcessamentoAtivo, s.atual.ID)
	}

	exec := &Execucao{
		ID:     uuid.New(),
		Estado: EstadoExecutando,
		Inicio: time.Now(),
	}
	s.atual = exec

	go s.executar(exec, dirEntrada)
	return exec.ID, nil
}

// executar o pipeline sequencial do lote. Roda fora do lock; o andamento é
// publicado via progresso().
func (s *Servico) executar(exec *Execucao, dirEntrada string) {
	inicio := time.Now()
	s.trilha.Limpar()
	s.trilha.Registrar("Execução %s iniciada sobre %s.", exec.ID, dirEntrada)

	falhar := func(err error) {
		s.log.Error().Err(err).Str("execucao", exec.ID.String()).Msg("lote falhou")
		s.trilha.Registrar("ERRO: %v", err)
		s.progresso(exec, 0, fmt.Sprintf("Erro: %v", err))
		s.salvarArtefatos() // trilha e geocache do lote falho não se perdem
		s.finalizar(exec, EstadoErro, nil)
	}

	s.progresso(exec, 5, "Iniciando leitura de arquivos SPED...")
	arquivos, err := classificarArquivos(dirEntrada)
	if err != nil {
		falhar(err)
		return
	}

	baseEfd, err := s.lerSped(arquivos.sped)
	if err != nil {
		falhar(err)
		return
	}
	s.base.trocar(baseEfd)
	s.progresso(exec, 20, "Arquivos SPED carregados.")

	s.progresso(exec, 25, "Lendo arquivos NFe de combustível...")
	itens, err := s.lerNfes(arquivos.nfe)
	if err != nil {
		falhar(err)
		return
	}
	s.progresso(exec, 40, "NFes de combustível carregadas.")

	s.progresso(exec, 45, "Lendo arquivos MDFe...")
	manifestos, err := s.lerMdfes(arquivos.mdfe)
	if err != nil {
		falhar(err)
		return
	}
	s.progresso(exec, 60, "MDFes carregados.")

	s.mu.Lock()
	s.manifestos = manifestos
	s.itens = itens
	s.edicoes = make(map[string][]entity.Waypoint) // lote novo zera as edições
	s.mu.Unlock()

	s.progresso(exec, 65, "Iniciando cruzamento de dados e cálculo de rotas...")
	lote, err := s.merge.ProcessarLote(context.Background(), manifestos, itens, nil)
	if err != nil {
		falhar(err)
		return
	}
	s.progresso(exec, 90, "Cruzamento e cálculo de rotas concluídos.")

	s.progresso(exec, 100, "Finalizando...")
	if err := s.store.Gravar(lote); err != nil {
		s.log.Warn().Err(err).Msg("registros do lote não persistidos")
	}
	s.salvarArtefatos()

	s.finalizar(exec, EstadoConcluido, lote)
	s.log.Info().
		Str("execucao", exec.ID.String()).
		Int("registros", len(lote)).
		Dur("duracao", time.Since(inicio)).
		Msg("lote concluído")
}

// EditarRota registra waypoints (e/ou distância manual) para uma viagem e
// reprocessa o lote inteiro: o razão de litros é reconstruído do zero e cada
// viagem realocada em ordem de data.
func (s *Servico) EditarRota(chaveDedup string, pontos []entity.Waypoint, distanciaKm *float64) ([]*entity.RegistroConsolidado, error) {
	s.mu.Lock()

	if s.atual != nil && s.atual.Estado == EstadoExecutando {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: aguarde o fim do lote", domain.ErrProcessamentoAtivo)
	}
	if len(s.manifestos) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: nenhum lote processado nesta sessão", domain.ErrNaoEncontrado)
	}

	var alvo *entity.Manifesto
	for _, m := range s.manifestos {
		if m.ChaveDedup() == chaveDedup {
			alvo = m
			break
		}
	}
	if alvo == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: viagem %s", domain.ErrNaoEncontrado, chaveDedup)
	}

	if len(pontos) > 0 {
		s.edicoes[chaveDedup] = pontos
	}
	alvo.DistanciaManualKm = distanciaKm

	manifestos := s.manifestos
	itens := s.itens
	edicoes := make(map[string][]entity.Waypoint, len(s.edicoes))
	for k, v := range s.edicoes {
		edicoes[k] = v
	}
	s.mu.Unlock()

	s.trilha.Registrar("Edição de rota da viagem %s; reprocessando o lote.", chaveDedup)
	lote, err := s.merge.ProcessarLote(context.Background(), manifestos, itens, edicoes)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.registros = lote
	s.mu.Unlock()

	if err := s.store.Gravar(lote); err != nil {
		s.log.Warn().Err(err).Msg("registros reprocessados não persistidos")
	}
	s.salvarArtefatos()
	return lote, nil
}

// Estado instantâneo da execução corrente (ou da última).
func (s *Servico) Estado() (Execucao, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.atual == nil {
		return Execucao{}, false
	}
	return *s.atual, true
}

// Registros o lote consolidado mais recente.
func (s *Servico) Registros() []*entity.RegistroConsolidado {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registros
}

// Itens os itens de NF-e do lote corrente (para os totais de diesel).
func (s *Servico) Itens() []*entity.ItemNFe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itens
}

func (s *Servico) progresso(exec *Execucao, pct int, msg string) {
	s.mu.Lock()
	exec.Percentual = pct
	exec.Mensagem = msg
	s.mu.Unlock()
	s.log.Debug().Int("percentual", pct).Msg(msg)
}

func (s *Servico) finalizar(exec *Execucao, estado string, lote []*entity.RegistroConsolidado) {
	agora := time.Now()
	s.mu.Lock()
	exec.Estado = estado
	exec.Fim = &agora
	if lote != nil {
		exec.Registros = len(lote)
		s.registros = lote
	}
	s.mu.Unlock()
}

// salvarArtefatos persiste trilha, geocache e afins; falha não derruba o lote.
func (s *Servico) salvarArtefatos() {
	if err := s.trilha.Salvar(); err != nil {
		s.log.Warn().Err(err).Msg("trilha de cálculo não gravada")
	}
	for _, p := range s.posLote {
		if err := p.Salvar(); err != nil {
			s.log.Warn().Err(err).Msg("artefato pós-lote não gravado")
		}
	}
}

type arquivosLote struct {
	mdfe []string
	nfe  []string
	sped []string
}

// classificarArquivos varre o diretório: .txt é EFD; .xml é MDF-e ou NF-e
// conforme o namespace do portal fiscal presente no conteúdo.
func classificarArquivos(dir string) (*arquivosLote, error) {
	entradas, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ler diretório de entrada %s: %w", dir, err)
	}

	out := &arquivosLote{}
	for _, e := range entradas {
		if e.IsDir() {
			continue
		}
		caminho := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt":
			out.sped = append(out.sped, caminho)
		case ".xml":
			tipo, err := tipoXML(caminho)
			if err != nil {
				return nil, err
			}
			switch tipo {
			case "mdfe":
				out.mdfe = append(out.mdfe, caminho)
			case "nfe":
				out.nfe = append(out.nfe, caminho)
			}
		}
	}

	if len(out.mdfe) == 0 {
		return nil, fmt.Errorf("%w: nenhum MDF-e em %s", domain.ErrEntradaInvalida, dir)
	}
	return out, nil
}

func tipoXML(caminho string) (string, error) {
	dados, err := os.ReadFile(caminho)
	if err != nil {
		return "", fmt.Errorf("ler %s: %w", caminho, err)
	}
	conteudo := string(dados)
	switch {
	case strings.Contains(conteudo, "portalfiscal.inf.br/mdfe"):
		return "mdfe", nil
	case strings.Contains(conteudo, "portalfiscal.inf.br/nfe"):
		return "nfe", nil
	default:
		return "", nil // XML alheio ao lote é ignorado
	}
}

func (s *Servico) lerSped(caminhos []string) (*sped.Base, error) {
	if len(caminhos) == 0 {
		s.trilha.Registrar("Nenhum arquivo EFD no lote; destinos dependerão do MDF-e.")
		base, _ := sped.Ler(strings.NewReader(""))
		return base, nil
	}
	// um arquivo EFD por lote é o caso normal; vários seriam períodos
	// distintos e apenas o primeiro é lido
	if len(caminhos) > 1 {
		s.trilha.Registrar("AVISO: %d arquivos EFD no lote; usando %s.", len(caminhos), caminhos[0])
	}
	base, err := sped.LerArquivo(caminhos[0])
	if err != nil {
		return nil, err
	}
	s.trilha.Registrar("EFD lida: %d participante(s), %d documento(s).", base.Participantes(), base.Documentos())
	return base, nil
}

func (s *Servico) lerNfes(caminhos []string) ([]*entity.ItemNFe, error) {
	var itens []*entity.ItemNFe
	for _, caminho := range caminhos {
		lidos, err := nfe.ParseArquivo(caminho)
		if err != nil {
			s.trilha.Registrar("AVISO: NF-e %s ignorada: %v.", filepath.Base(caminho), err)
			continue
		}
		itens = append(itens, lidos...)
	}
	s.trilha.Registrar("%d item(ns) de NF-e lidos de %d arquivo(s).", len(itens), len(caminhos))
	return itens, nil
}

func (s *Servico) lerMdfes(caminhos []string) ([]*entity.Manifesto, error) {
	var manifestos []*entity.Manifesto
	for _, caminho := range caminhos {
		m, err := mdfe.ParseArquivo(caminho)
		if err != nil {
			s.trilha.Registrar("AVISO: MDF-e %s ignorado: %v.", filepath.Base(caminho), err)
			continue
		}
		manifestos = append(manifestos, m)
	}
	if len(manifestos) == 0 {
		return nil, fmt.Errorf("%w: nenhum MDF-e legível no lote", domain.ErrEntradaInvalida)
	}
	s.trilha.Registrar("%d manifesto(s) lidos.", len(manifestos))
	return manifestos, nil
}
