// Package ors cliente HTTP do OpenRouteService: geocodificação (Pelias) e
// direções rodoviárias para caminhão. Transientes (429, 5xx, erro de rede)
// são repetidos com backoff exponencial; o cache de geocodificação evita
// requisições repetidas entre lotes.
package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jcandia/frota-fiscal/internal/application/rota"
	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/config"
	"github.com/jcandia/frota-fiscal/pkg/logger"
	"github.com/jcandia/frota-fiscal/pkg/texto"
)

// CacheGeo contrato do cache persistente de geocodificação.
type CacheGeo interface {
	Buscar(endereco string) (entity.GeoPoint, bool)
	Gravar(endereco string, p entity.GeoPoint)
}

// Cliente implementa rota.Geocodificador e rota.ClienteDirecoes sobre a API
// pública do OpenRouteService.
type Cliente struct {
	http    *http.Client
	apiKey  string
	baseURL string
	perfil  string
	pais    string
	cache   CacheGeo
	log     *logger.Logger
}

// NovoCliente monta o cliente a partir da configuração. cache pode ser nil.
func NovoCliente(cfg config.ORSConfig, cache CacheGeo, log *logger.Logger) (*Cliente, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ors: api key não configurada")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &Cliente{
		http:    &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		perfil:  "driving-hgv",
		pais:    cfg.Pais,
		cache:   cache,
		log:     log,
	}, nil
}

type respostaGeocode struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"features"`
}

// Geocodificar resolve um endereço para coordenadas, consultando primeiro o
// cache persistente. Endereço desconhecido devolve domain.ErrNaoEncontrado.
func (c *Cliente) Geocodificar(ctx context.Context, endereco string) (entity.GeoPoint, error) {
	norm := texto.NormalizarEspacos(endereco)
	if norm == "" {
		return entity.GeoPoint{}, fmt.Errorf("%w: endereço vazio", domain.ErrEntradaInvalida)
	}

	if c.cache != nil {
		if p, ok := c.cache.Buscar(norm); ok {
			return p, nil
		}
	}

	endpoint := c.baseURL + "/geocode/search"
	consulta := url.Values{}
	consulta.Set("text", norm)
	consulta.Set("boundary.country", c.pais)
	consulta.Set("size", "1")

	resp, err := c.comRetry(ctx, func() (*http.Request, error) {
		req, err := c.novaRequisicao(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = consulta.Encode()
		return req, nil
	})
	if err != nil {
		return entity.GeoPoint{}, fmt.Errorf("geocodificar %q: %w", norm, err)
	}
	defer resp.Body.Close()

	var decodificada respostaGeocode
	if err := json.NewDecoder(resp.Body).Decode(&decodificada); err != nil {
		return entity.GeoPoint{}, fmt.Errorf("decodificar resposta de geocodificação: %w", err)
	}

	if len(decodificada.Features) == 0 || len(decodificada.Features[0].Geometry.Coordinates) != 2 {
		return entity.GeoPoint{}, fmt.Errorf("%w: %q", domain.ErrNaoEncontrado, norm)
	}

	coords := decodificada.Features[0].Geometry.Coordinates
	p := entity.GeoPoint{Lat: coords[1], Lon: coords[0]}

	if c.cache != nil {
		c.cache.Gravar(norm, p)
	}
	c.log.Debug().Str("endereco", norm).Float64("lat", p.Lat).Float64("lon", p.Lon).Msg("endereço geocodificado")
	return p, nil
}

type requisicaoDirecoes struct {
	Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
}

type respostaDirecoes struct {
	Features []struct {
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"` // metros
			} `json:"summary"`
			Segments []struct {
				Distance float64 `json:"distance"`
			} `json:"segments"`
		} `json:"properties"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Direcoes pede a rota rodoviária pela lista ordenada de coordenadas. O
// chunking acima do limite de pontos é responsabilidade do serviço de rota.
func (c *Cliente) Direcoes(ctx context.Context, pontos []entity.GeoPoint) (*rota.Direcoes, error) {
	if len(pontos) < 2 {
		return nil, fmt.Errorf("%w: direções exigem ao menos 2 pontos", domain.ErrEntradaInvalida)
	}

	corpo := requisicaoDirecoes{Coordinates: make([][]float64, 0, len(pontos))}
	for _, p := range pontos {
		corpo.Coordinates = append(corpo.Coordinates, []float64{p.Lon, p.Lat})
	}
	payload, err := json.Marshal(corpo)
	if err != nil {
		return nil, fmt.Errorf("serializar requisição de direções: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, c.perfil)
	resp, err := c.comRetry(ctx, func() (*http.Request, error) {
		return c.novaRequisicao(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("direções (%d pontos): %w", len(pontos), err)
	}
	defer resp.Body.Close()

	var decodificada respostaDirecoes
	if err := json.NewDecoder(resp.Body).Decode(&decodificada); err != nil {
		return nil, fmt.Errorf("decodificar resposta de direções: %w", err)
	}
	if len(decodificada.Features) == 0 {
		return nil, errors.New("resposta de direções sem rota")
	}

	f := decodificada.Features[0]
	out := &rota.Direcoes{
		TotalKm:  f.Properties.Summary.Distance / 1000.0,
		PernasKm: make([]float64, 0, len(f.Properties.Segments)),
	}
	for _, seg := range f.Properties.Segments {
		out.PernasKm = append(out.PernasKm, seg.Distance/1000.0)
	}
	for _, par := range f.Geometry.Coordinates {
		if len(par) == 2 {
			out.Polilinha = append(out.Polilinha, entity.GeoPoint{Lat: par[1], Lon: par[0]})
		}
	}
	return out, nil
}

func (c *Cliente) novaRequisicao(ctx context.Context, metodo, endpoint string, corpo io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, metodo, endpoint, corpo)
	if err != nil {
		return nil, fmt.Errorf("criar requisição: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if corpo != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

type erroHTTP struct {
	Codigo int
	Corpo  string
}

func (e *erroHTTP) Error() string {
	return fmt.Sprintf("status %d: %s", e.Codigo, e.Corpo)
}

func (c *Cliente) executar(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &erroHTTP{Codigo: resp.StatusCode, Corpo: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// comRetry repete transientes (rede, 429, 5xx) com backoff exponencial,
// respeitando o cancelamento do contexto.
func (c *Cliente) comRetry(ctx context.Context, montar func() (*http.Request, error)) (*http.Response, error) {
	const tentativas = 4
	espera := 200 * time.Millisecond

	var ultimoErr error
	for tentativa := 1; tentativa <= tentativas; tentativa++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := montar()
		if err != nil {
			return nil, err
		}

		resp, err := c.executar(req)
		if err == nil {
			return resp, nil
		}
		ultimoErr = err

		if !transiente(err) || tentativa == tentativas {
			return nil, ultimoErr
		}

		c.log.Warn().Err(err).Int("tentativa", tentativa).Msg("falha transiente no OpenRouteService; repetindo")

		cronometro := time.NewTimer(espera)
		select {
		case <-ctx.Done():
			cronometro.Stop()
			return nil, ctx.Err()
		case <-cronometro.C:
		}
		espera *= 2
	}
	return nil, ultimoErr
}

func transiente(err error) bool {
	var he *erroHTTP
	if errors.As(err, &he) {
		switch he.Codigo {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}
