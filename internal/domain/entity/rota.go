package entity

import "strings"

// GeoPoint coordenadas geográficas (latitude, longitude).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Waypoint um ponto da rota: endereço textual, cidade para exibição, a chave
// da NF-e que o originou (quando houver) e as coordenadas resolvidas. A
// ausência de coordenadas após a geocodificação exclui o ponto da rota — não
// derruba o cálculo inteiro.
type Waypoint struct {
	Endereco    string    `json:"endereco"`
	Cidade      string    `json:"cidade,omitempty"`
	ChaveNFe    string    `json:"chave_nfe,omitempty"`
	Coordenadas *GeoPoint `json:"coordenadas,omitempty"`
}

// Estratégias de cálculo de distância, na ordem de preferência.
const (
	EstrategiaProvedor       = "provider"
	EstrategiaProvedorBlocos = "provider-chunked"
	EstrategiaLinhaReta      = "fallback-straight-line"
)

// ResultadoRota saída do serviço de distância: total, pernas, estratégia
// utilizada, avisos acumulados, polilinha e os pontos efetivamente usados.
type ResultadoRota struct {
	TotalKm    float64
	PernasKm   []float64
	Estrategia string
	Avisos     []string
	Polilinha  []GeoPoint
	Pontos     []Waypoint
}

// AvisosTexto concatena os avisos com "; " para registro em log e na linha.
func (r *ResultadoRota) AvisosTexto() string {
	return strings.Join(r.Avisos, "; ")
}
