// Package runlog acumula a trilha de auditoria de um processamento: cada
// decisão do merge vira uma linha com hora, e o arquivo inteiro é gravado ao
// fim do lote. É o log que o operador lê, separado do log estruturado da
// aplicação.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Trilha buffer de linhas com hora. Segura para uso concorrente.
type Trilha struct {
	mu      sync.Mutex
	caminho string
	linhas  []string
	agora   func() time.Time
}

// Nova cria a trilha que persiste no caminho indicado.
func Nova(caminho string) *Trilha {
	return &Trilha{caminho: caminho, agora: time.Now}
}

// Registrar acrescenta uma linha formatada com a hora corrente.
func (t *Trilha) Registrar(formato string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.linhas = append(t.linhas, fmt.Sprintf("[%s] %s", t.agora().Format("15:04:05"), fmt.Sprintf(formato, args...)))
}

// Limpar descarta as linhas acumuladas; chamada no início de cada lote.
func (t *Trilha) Limpar() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.linhas = nil
}

// Linhas devolve uma cópia da trilha acumulada.
func (t *Trilha) Linhas() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.linhas))
	copy(out, t.linhas)
	return out
}

// Salvar grava a trilha inteira no arquivo, substituindo a anterior.
func (t *Trilha) Salvar() error {
	t.mu.Lock()
	conteudo := strings.Join(t.linhas, "\n")
	t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.caminho), 0o755); err != nil {
		return fmt.Errorf("criar diretório da trilha: %w", err)
	}
	if err := os.WriteFile(t.caminho, []byte(conteudo+"\n"), 0o644); err != nil {
		return fmt.Errorf("gravar trilha de cálculo: %w", err)
	}
	return nil
}

// Caminho o arquivo de destino da trilha.
func (t *Trilha) Caminho() string { return t.caminho }
