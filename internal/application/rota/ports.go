package rota

import (
	"context"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

// Geocodificador resolve um endereço textual para coordenadas.
// Deve devolver domain.ErrNaoEncontrado quando o provedor não conhece o lugar.
type Geocodificador interface {
	Geocodificar(ctx context.Context, endereco string) (entity.GeoPoint, error)
}

// Direcoes resposta do provedor de direções para uma lista ordenada de pontos.
type Direcoes struct {
	TotalKm   float64
	PernasKm  []float64
	Polilinha []entity.GeoPoint
}

// ClienteDirecoes pede a rota rodoviária por uma lista ordenada de
// coordenadas. O provedor impõe um máximo de pontos por chamada; respeitar o
// limite é responsabilidade do Servico, não do cliente.
type ClienteDirecoes interface {
	Direcoes(ctx context.Context, pontos []entity.GeoPoint) (*Direcoes, error)
}
