package mapa

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

func TestGerarMapa(t *testing.T) {
	g := Novo(t.TempDir())

	caminho, err := g.GerarMapa("rota_1021", []entity.GeoPoint{
		{Lat: -22.08, Lon: -54.79},
		{Lat: -20.44, Lon: -54.65},
	}, nil)
	require.NoError(t, err)

	dados, err := os.ReadFile(caminho)
	require.NoError(t, err)
	html := string(dados)
	assert.Contains(t, html, "L.polyline")
	assert.Contains(t, html, "[-22.08, -54.79]")
	assert.Contains(t, html, "{s}.tile.openstreetmap.org")
	assert.Contains(t, html, "Origem")
}

func TestGerarMapa_NomePerigosoESanitizado(t *testing.T) {
	g := Novo(t.TempDir())
	caminho, err := g.GerarMapa("rota ../1021", []entity.GeoPoint{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}, nil)
	require.NoError(t, err)
	assert.NotContains(t, caminho, "..")
}

func TestGerarMapa_PoucosPontos(t *testing.T) {
	g := Novo(t.TempDir())
	_, err := g.GerarMapa("curta", []entity.GeoPoint{{Lat: 1, Lon: 2}}, nil)
	assert.ErrorIs(t, err, domain.ErrEntradaInvalida)
}
