// Package registros persiste o último lote consolidado em JSON, para que o
// demonstrativo sobreviva a um reinício e a edição de rota parta do que já
// foi calculado.
package registros

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

// Store arquivo JSON com os registros do último processamento.
type Store struct {
	mu      sync.Mutex
	caminho string
}

// Novo cria o store apontando para o arquivo indicado.
func Novo(caminho string) *Store {
	return &Store{caminho: caminho}
}

// Gravar substitui o conteúdo pelo lote informado.
func (s *Store) Gravar(lote []*entity.RegistroConsolidado) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dados, err := json.MarshalIndent(lote, "", "  ")
	if err != nil {
		return fmt.Errorf("serializar registros: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.caminho), 0o755); err != nil {
		return fmt.Errorf("criar diretório de registros: %w", err)
	}
	if err := os.WriteFile(s.caminho, dados, 0o644); err != nil {
		return fmt.Errorf("gravar registros: %w", err)
	}
	return nil
}

// Carregar devolve o último lote gravado; arquivo ausente devolve lote vazio.
func (s *Store) Carregar() ([]*entity.RegistroConsolidado, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dados, err := os.ReadFile(s.caminho)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("ler registros: %w", err)
	}

	var lote []*entity.RegistroConsolidado
	if err := json.Unmarshal(dados, &lote); err != nil {
		return nil, fmt.Errorf("registros corrompidos: %w", err)
	}
	return lote, nil
}
