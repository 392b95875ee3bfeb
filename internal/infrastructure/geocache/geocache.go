// Package geocache mantém um cache persistente de geocodificação em arquivo
// JSON. Endereços de entrega se repetem muito entre lotes; sem o cache cada
// reprocessamento estouraria a cota do provedor.
package geocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/logger"
	"github.com/jcandia/frota-fiscal/pkg/texto"
)

// Cache endereço normalizado -> coordenadas. Seguro para uso concorrente.
type Cache struct {
	mu       sync.RWMutex
	caminho  string
	entradas map[string]entity.GeoPoint
	sujo     bool
	log      *logger.Logger
}

// Novo carrega o cache do arquivo indicado; arquivo ausente começa vazio e
// arquivo corrompido é descartado com aviso (o cache é reconstituível).
func Novo(caminho string, log *logger.Logger) *Cache {
	c := &Cache{
		caminho:  caminho,
		entradas: make(map[string]entity.GeoPoint),
		log:      log,
	}

	dados, err := os.ReadFile(caminho)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c
	case err != nil:
		log.Warn().Err(err).Str("arquivo", caminho).Msg("cache de geocodificação ilegível; começando vazio")
		return c
	}

	if err := json.Unmarshal(dados, &c.entradas); err != nil {
		log.Warn().Err(err).Str("arquivo", caminho).Msg("cache de geocodificação corrompido; descartado")
		c.entradas = make(map[string]entity.GeoPoint)
		return c
	}

	log.Debug().Int("entradas", len(c.entradas)).Msg("cache de geocodificação carregado")
	return c
}

// Buscar devolve as coordenadas do endereço, se conhecidas.
func (c *Cache) Buscar(endereco string) (entity.GeoPoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entradas[chave(endereco)]
	return p, ok
}

// Gravar registra as coordenadas do endereço e reescreve o arquivo na hora:
// cada geocodificação custa cota do provedor e precisa sobreviver mesmo a um
// lote que falhe no meio. Falha de disco fica pendente para Salvar tentar de
// novo ao fim do lote.
func (c *Cache) Gravar(endereco string, p entity.GeoPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entradas[chave(endereco)] = p
	c.sujo = true

	if err := c.persistir(); err != nil {
		c.log.Warn().Err(err).Msg("cache de geocodificação não gravado; nova tentativa ao fim do lote")
	}
}

// Tamanho quantidade de endereços conhecidos.
func (c *Cache) Tamanho() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entradas)
}

// Salvar persiste o cache quando houve escrita pendente (só acontece se a
// gravação imediata de Gravar tiver falhado).
func (c *Cache) Salvar() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistir()
}

// persistir reescreve o arquivo quando há mudança pendente; exige o lock.
func (c *Cache) persistir() error {
	if !c.sujo {
		return nil
	}

	dados, err := json.MarshalIndent(c.entradas, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar cache de geocodificação: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.caminho), 0o755); err != nil {
		return fmt.Errorf("criar diretório do cache: %w", err)
	}
	if err := os.WriteFile(c.caminho, dados, 0o644); err != nil {
		return fmt.Errorf("gravar cache de geocodificação: %w", err)
	}

	c.sujo = false
	return nil
}

// chave normaliza o endereço para servir de chave estável: espaços
// colapsados, sem acentos, maiúsculas.
func chave(endereco string) string {
	return strings.ToUpper(texto.SemAcentos(texto.NormalizarEspacos(endereco)))
}
