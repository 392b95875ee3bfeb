package ors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/config"
	"github.com/jcandia/frota-fiscal/pkg/logger"
)

type cacheMem struct {
	m map[string]entity.GeoPoint
}

func (c *cacheMem) Buscar(e string) (entity.GeoPoint, bool) {
	p, ok := c.m[e]
	return p, ok
}

func (c *cacheMem) Gravar(e string, p entity.GeoPoint) {
	c.m[e] = p
}

func novoClienteTeste(t *testing.T, baseURL string, cache CacheGeo) *Cliente {
	t.Helper()
	c, err := NovoCliente(config.ORSConfig{
		APIKey:         "chave-de-teste",
		BaseURL:        baseURL,
		TimeoutSeconds: 5,
		Pais:           "BR",
	}, cache, logger.New(logger.Config{Env: "production", Level: "error"}))
	require.NoError(t, err)
	return c
}

func TestGeocodificar_SucessoEGravaNoCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "chave-de-teste", r.Header.Get("Authorization"))
		assert.Equal(t, "BR", r.URL.Query().Get("boundary.country"))
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-54.79,-22.08]}}]}`))
	}))
	defer srv.Close()

	cache := &cacheMem{m: map[string]entity.GeoPoint{}}
	c := novoClienteTeste(t, srv.URL, cache)

	p, err := c.Geocodificar(context.Background(), "  Itaporã,  MS ")
	require.NoError(t, err)
	assert.InDelta(t, -22.08, p.Lat, 1e-9)
	assert.InDelta(t, -54.79, p.Lon, 1e-9)

	// chave do cache com espaços colapsados
	_, ok := cache.m["Itaporã, MS"]
	assert.True(t, ok)
}

func TestGeocodificar_CacheEvitaRequisicao(t *testing.T) {
	var chamadas atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		chamadas.Add(1)
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	cache := &cacheMem{m: map[string]entity.GeoPoint{
		"Dourados, MS": {Lat: -22.22, Lon: -54.81},
	}}
	c := novoClienteTeste(t, srv.URL, cache)

	p, err := c.Geocodificar(context.Background(), "Dourados, MS")
	require.NoError(t, err)
	assert.InDelta(t, -22.22, p.Lat, 1e-9)
	assert.Zero(t, chamadas.Load())
}

func TestGeocodificar_SemResultadoDevolveNaoEncontrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	c := novoClienteTeste(t, srv.URL, nil)
	_, err := c.Geocodificar(context.Background(), "Lugar Nenhum, ZZ")
	assert.ErrorIs(t, err, domain.ErrNaoEncontrado)
}

func TestDirecoes_ParseiaResumoESegmentos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-hgv/geojson", r.URL.Path)
		w.Write([]byte(`{"features":[{
			"properties":{
				"summary":{"distance":250000},
				"segments":[{"distance":100000},{"distance":150000}]
			},
			"geometry":{"coordinates":[[-54.79,-22.08],[-54.81,-22.22],[-54.61,-22.53]]}
		}]}`))
	}))
	defer srv.Close()

	c := novoClienteTeste(t, srv.URL, nil)
	d, err := c.Direcoes(context.Background(), []entity.GeoPoint{
		{Lat: -22.08, Lon: -54.79},
		{Lat: -22.22, Lon: -54.81},
		{Lat: -22.53, Lon: -54.61},
	})
	require.NoError(t, err)
	assert.InDelta(t, 250.0, d.TotalKm, 1e-9)
	assert.Equal(t, []float64{100.0, 150.0}, d.PernasKm)
	assert.Len(t, d.Polilinha, 3)
	assert.InDelta(t, -22.08, d.Polilinha[0].Lat, 1e-9)
}

func TestComRetry_RepeteTransientesEDesisteDe4xx(t *testing.T) {
	var chamadas atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if chamadas.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-54.79,-22.08]}}]}`))
	}))
	defer srv.Close()

	c := novoClienteTeste(t, srv.URL, nil)
	_, err := c.Geocodificar(context.Background(), "Itaporã, MS")
	require.NoError(t, err)
	assert.Equal(t, int32(2), chamadas.Load())

	// 403 não é transiente: uma única chamada
	var chamadas403 atomic.Int32
	srv403 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		chamadas403.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv403.Close()

	c403 := novoClienteTeste(t, srv403.URL, nil)
	_, err = c403.Geocodificar(context.Background(), "Itaporã, MS")
	assert.Error(t, err)
	assert.Equal(t, int32(1), chamadas403.Load())
}

func TestNovoCliente_ExigeAPIKey(t *testing.T) {
	_, err := NovoCliente(config.ORSConfig{}, nil, logger.New(logger.Config{Env: "production", Level: "error"}))
	assert.Error(t, err)
}
