// Package mapa gera um HTML autocontido (Leaflet + OpenStreetMap) com a
// polilinha da rota calculada, para conferência visual pelo operador.
package mapa

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

var tmplMapa = template.Must(template.New("mapa").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Visualização de Rota</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css" />
    <script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
    <style>html, body, #map { height: 100%; margin: 0; padding: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
    var map = L.map('map');
    L.tileLayer('https://{{"{s}"}}.tile.openstreetmap.org/{{"{z}"}}/{{"{x}"}}/{{"{y}"}}.png', {
        attribution: '&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors'
    }).addTo(map);
    var points = [{{.Pontos}}];
    var polyline = L.polyline(points, {color: 'blue'}).addTo(map);
    map.fitBounds(polyline.getBounds().pad(0.1));
    L.marker(points[0]).addTo(map).bindPopup('<b>Origem</b>');
    L.marker(points[points.length - 1]).addTo(map).bindPopup('<b>Destino Final</b>');
</script>
</body>
</html>
`))

// Gerador grava os mapas num diretório fixo, um arquivo por rota.
type Gerador struct {
	dir string
}

// Novo cria o gerador apontando para o diretório de mapas.
func Novo(dir string) *Gerador {
	return &Gerador{dir: dir}
}

// GerarMapa escreve o HTML da rota e devolve o caminho do arquivo. Exige ao
// menos dois pontos na polilinha.
func (g *Gerador) GerarMapa(nome string, polilinha []entity.GeoPoint, _ []entity.Waypoint) (string, error) {
	if len(polilinha) < 2 {
		return "", fmt.Errorf("%w: polilinha com %d ponto(s)", domain.ErrEntradaInvalida, len(polilinha))
	}

	pares := make([]string, 0, len(polilinha))
	for _, p := range polilinha {
		pares = append(pares, fmt.Sprintf("[%g, %g]", p.Lat, p.Lon))
	}

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("criar diretório de mapas: %w", err)
	}

	caminho := filepath.Join(g.dir, sanitizar(nome)+".html")
	f, err := os.Create(caminho)
	if err != nil {
		return "", fmt.Errorf("criar mapa %s: %w", caminho, err)
	}
	defer f.Close()

	dados := struct{ Pontos string }{Pontos: strings.Join(pares, ",")}
	if err := tmplMapa.Execute(f, dados); err != nil {
		return "", fmt.Errorf("renderizar mapa: %w", err)
	}
	return caminho, nil
}

// sanitizar mantém só o que pode virar nome de arquivo.
func sanitizar(nome string) string {
	var b strings.Builder
	for _, r := range nome {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "rota"
	}
	return b.String()
}
