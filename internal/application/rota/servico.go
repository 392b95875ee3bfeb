// Package rota converte uma lista ordenada de waypoints em distância de
// viagem, tolerando o limite de pontos por requisição do provedor e a sua
// indisponibilidade. Três caminhos puros — geocodificação, rota única e rota
// em blocos — compostos por um único orquestrador (Calcular); a linha reta
// por haversine é o último recurso.
package rota

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

// Servico calcula distâncias com chunking e fallback.
type Servico struct {
	geo       Geocodificador  // nil = sem geocodificação; só pontos já com coordenadas
	direcoes  ClienteDirecoes // nil = provedor não configurado; só linha reta
	maxPontos int
}

// NovoServico monta o serviço. maxPontos é o limite de waypoints por chamada
// do provedor (70 no OpenRouteService); valores não positivos caem no padrão.
func NovoServico(geo Geocodificador, direcoes ClienteDirecoes, maxPontos int) *Servico {
	if maxPontos <= 1 {
		maxPontos = 70
	}
	return &Servico{geo: geo, direcoes: direcoes, maxPontos: maxPontos}
}

// Calcular orquestra o cálculo: geocodifica todos os pontos, fecha o ciclo se
// pedido, e escolhe entre requisição única, blocos ou linha reta. Falhas do
// provedor nunca são fatais — degradam para a próxima estratégia com aviso.
func (s *Servico) Calcular(ctx context.Context, pontos []entity.Waypoint, fecharCiclo bool) (*entity.ResultadoRota, error) {
	validos, avisos := s.geocodificarTodos(ctx, pontos)

	if len(validos) < 2 {
		return nil, fmt.Errorf("%w: %d ponto(s) geocodificado(s) de %d",
			domain.ErrPontosInsuficientes, len(validos), len(pontos))
	}

	// Fecha o ciclo repetindo o primeiro ponto válido no fim, se ainda não for o mesmo.
	if fecharCiclo {
		primeiro, ultimo := validos[0], validos[len(validos)-1]
		if *primeiro.Coordenadas != *ultimo.Coordenadas {
			validos = append(validos, primeiro)
		}
	}

	coords := coordenadasDe(validos)

	if s.direcoes == nil {
		res := s.linhaReta(coords)
		res.Pontos = validos
		res.Avisos = append(avisos, "provedor de direções não configurado; usando linha reta")
		return res, nil
	}

	var res *entity.ResultadoRota
	if len(coords) <= s.maxPontos {
		r, err := s.rotaUnica(ctx, coords)
		if err != nil {
			avisos = append(avisos, fmt.Sprintf("provedor indisponível (%v); usando linha reta", err))
			res = s.linhaReta(coords)
		} else {
			res = r
		}
	} else {
		res = s.rotaEmBlocos(ctx, coords)
	}

	res.Pontos = validos
	res.Avisos = append(avisos, res.Avisos...)
	return res, nil
}

// geocodificarTodos resolve cada endereço; falha de um ponto vira aviso e o
// ponto sai da rota, sem abortar o cálculo.
func (s *Servico) geocodificarTodos(ctx context.Context, pontos []entity.Waypoint) ([]entity.Waypoint, []string) {
	var validos []entity.Waypoint
	var avisos []string

	for _, p := range pontos {
		if p.Endereco == "" {
			continue
		}
		if p.Coordenadas != nil {
			validos = append(validos, p)
			continue
		}
		if s.geo == nil {
			avisos = append(avisos, fmt.Sprintf("geocodificador não configurado; ponto %q descartado", p.Endereco))
			continue
		}
		c, err := s.geo.Geocodificar(ctx, p.Endereco)
		if err != nil {
			avisos = append(avisos, fmt.Sprintf("geocodificação falhou para %q: %v", p.Endereco, err))
			continue
		}
		p.Coordenadas = &entity.GeoPoint{Lat: c.Lat, Lon: c.Lon}
		validos = append(validos, p)
	}
	return validos, avisos
}

// rotaUnica uma chamada ao provedor para a lista inteira.
func (s *Servico) rotaUnica(ctx context.Context, coords []entity.GeoPoint) (*entity.ResultadoRota, error) {
	d, err := s.direcoes.Direcoes(ctx, coords)
	if err != nil {
		return nil, err
	}
	if d == nil || d.TotalKm <= 0 {
		return nil, errors.New("provedor não devolveu rota utilizável")
	}
	return &entity.ResultadoRota{
		TotalKm:    arredondar1(d.TotalKm),
		PernasKm:   arredondarPernas(d.PernasKm),
		Estrategia: entity.EstrategiaProvedor,
		Polilinha:  d.Polilinha,
	}, nil
}

// rotaEmBlocos divide a lista em janelas sobrepostas (o último ponto de cada
// janela é o primeiro da seguinte, preservando a continuidade das pernas),
// consulta cada bloco e soma. Falha de um bloco individual é estimada por
// linha reta entre os pontos consecutivos dele — o resultado global nunca é
// descartado por falha parcial.
func (s *Servico) rotaEmBlocos(ctx context.Context, coords []entity.GeoPoint) *entity.ResultadoRota {
	res := &entity.ResultadoRota{Estrategia: entity.EstrategiaProvedorBlocos}

	passo := s.maxPontos - 1 // pernas por bloco
	for ini := 0; ini < len(coords)-1; ini += passo {
		fim := ini + passo
		if fim > len(coords)-1 {
			fim = len(coords) - 1
		}
		bloco := coords[ini : fim+1]

		d, err := s.direcoes.Direcoes(ctx, bloco)
		if err != nil || d == nil || d.TotalKm <= 0 {
			res.Avisos = append(res.Avisos, fmt.Sprintf(
				"bloco %d-%d falhou no provedor; estimado por linha reta", ini, fim))
			for i := 1; i < len(bloco); i++ {
				perna := HaversineKm(bloco[i-1].Lat, bloco[i-1].Lon, bloco[i].Lat, bloco[i].Lon)
				res.PernasKm = append(res.PernasKm, perna)
				res.TotalKm += perna
			}
			res.Polilinha = emendarPolilinha(res.Polilinha, bloco)
			continue
		}

		res.TotalKm += d.TotalKm
		res.PernasKm = append(res.PernasKm, arredondarPernas(d.PernasKm)...)
		res.Polilinha = emendarPolilinha(res.Polilinha, d.Polilinha)
	}

	res.TotalKm = arredondar1(res.TotalKm)
	return res
}

// linhaReta rota inteira por haversine, perna a perna.
func (s *Servico) linhaReta(coords []entity.GeoPoint) *entity.ResultadoRota {
	res := &entity.ResultadoRota{
		Estrategia: entity.EstrategiaLinhaReta,
		Polilinha:  coords,
	}
	for i := 1; i < len(coords); i++ {
		perna := HaversineKm(coords[i-1].Lat, coords[i-1].Lon, coords[i].Lat, coords[i].Lon)
		res.PernasKm = append(res.PernasKm, perna)
		res.TotalKm += perna
	}
	res.TotalKm = arredondar1(res.TotalKm)
	return res
}

// emendarPolilinha concatena descartando o ponto de junção duplicado.
func emendarPolilinha(acum, novo []entity.GeoPoint) []entity.GeoPoint {
	if len(acum) > 0 && len(novo) > 0 && acum[len(acum)-1] == novo[0] {
		novo = novo[1:]
	}
	return append(acum, novo...)
}

// HaversineKm distância em linha reta entre duas coordenadas, raio terrestre
// de 6371 km, arredondada a uma casa.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0
	lat1 = lat1 * math.Pi / 180.0
	lat2 = lat2 * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return arredondar1(r * c)
}

func coordenadasDe(pontos []entity.Waypoint) []entity.GeoPoint {
	out := make([]entity.GeoPoint, 0, len(pontos))
	for _, p := range pontos {
		out = append(out, *p.Coordenadas)
	}
	return out
}

func arredondar1(v float64) float64 {
	return math.Round(v*10) / 10
}

func arredondarPernas(pernas []float64) []float64 {
	out := make([]float64, 0, len(pernas))
	for _, p := range pernas {
		out = append(out, arredondar1(p))
	}
	return out
}
