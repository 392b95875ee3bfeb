// Package veiculos cadastro local de veículos em arquivo JSON, mantido pelo
// operador. O MDF-e traz placa e RENAVAM; modelo e tipo vêm daqui.
package veiculos

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/logger"
)

// Cadastro registro de veículos com persistência em JSON. Seguro para uso
// concorrente.
type Cadastro struct {
	mu      sync.RWMutex
	caminho string
	frota   []entity.Veiculo
	log     *logger.Logger
}

// Novo carrega o cadastro do arquivo; ausente ou corrompido começa vazio.
func Novo(caminho string, log *logger.Logger) *Cadastro {
	c := &Cadastro{caminho: caminho, log: log}

	dados, err := os.ReadFile(caminho)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c
	case err != nil:
		log.Warn().Err(err).Str("arquivo", caminho).Msg("cadastro de veículos ilegível; começando vazio")
		return c
	}

	if err := json.Unmarshal(dados, &c.frota); err != nil {
		log.Warn().Err(err).Str("arquivo", caminho).Msg("cadastro de veículos corrompido; descartado")
		c.frota = nil
	}
	return c
}

// BuscarVeiculo procura por placa e RENAVAM; sem RENAVAM (ou sem par exato),
// a placa sozinha decide. Caixa e hífen não diferenciam.
func (c *Cadastro) BuscarVeiculo(placa, renavam string) (*entity.Veiculo, bool) {
	placa = normalizar(placa)
	if placa == "" {
		return nil, false
	}
	renavam = strings.TrimSpace(renavam)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if renavam != "" {
		for i := range c.frota {
			v := &c.frota[i]
			if normalizar(v.Placa) == placa && strings.EqualFold(strings.TrimSpace(v.Renavam), renavam) {
				return v, true
			}
		}
	}
	for i := range c.frota {
		if normalizar(c.frota[i].Placa) == placa {
			return &c.frota[i], true
		}
	}
	return nil, false
}

// Listar devolve uma cópia da frota cadastrada.
func (c *Cadastro) Listar() []entity.Veiculo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entity.Veiculo, len(c.frota))
	copy(out, c.frota)
	return out
}

// Cadastrar insere ou substitui o veículo da placa informada.
func (c *Cadastro) Cadastrar(v entity.Veiculo) error {
	if normalizar(v.Placa) == "" {
		return fmt.Errorf("%w: placa é obrigatória", domain.ErrEntradaInvalida)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.frota {
		if normalizar(c.frota[i].Placa) == normalizar(v.Placa) {
			c.frota[i] = v
			return nil
		}
	}
	c.frota = append(c.frota, v)
	return nil
}

// Salvar persiste o cadastro no arquivo.
func (c *Cadastro) Salvar() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dados, err := json.MarshalIndent(c.frota, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar cadastro de veículos: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.caminho), 0o755); err != nil {
		return fmt.Errorf("criar diretório do cadastro: %w", err)
	}
	if err := os.WriteFile(c.caminho, dados, 0o644); err != nil {
		return fmt.Errorf("gravar cadastro de veículos: %w", err)
	}
	return nil
}

func normalizar(placa string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(placa)), "-", "")
}
