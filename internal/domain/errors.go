package domain

import "errors"

// Erros de domínio (sem dependências externas).
var (
	ErrNaoEncontrado       = errors.New("recurso não encontrado")
	ErrEntradaInvalida     = errors.New("entrada inválida")
	ErrDuplicado           = errors.New("recurso duplicado")
	ErrOrigemIndefinida    = errors.New("origem da viagem não pôde ser determinada")
	ErrPontosInsuficientes = errors.New("pontos insuficientes para calcular rota")
	ErrProcessamentoAtivo  = errors.New("já existe um processamento em andamento")
)
