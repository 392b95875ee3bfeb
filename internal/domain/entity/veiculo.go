package entity

import "fmt"

// Veiculo cadastro local de veículo, chaveado por placa (+ renavam opcional).
type Veiculo struct {
	Placa   string `json:"placa"`
	Renavam string `json:"renavam,omitempty"`
	Modelo  string `json:"modelo,omitempty"`
	Tipo    string `json:"tipo,omitempty"`
}

// Tabelas de código do MDF-e (veicTracao).
var tiposRodado = map[string]string{
	"01": "Ciclomotor",
	"02": "Motocicleta",
	"03": "Motoneta",
	"04": "Quadriciclo",
	"05": "Automóvel",
	"06": "Caminhão Trator",
	"07": "Caminhão",
	"08": "Utilitário",
}

var tiposCarroceria = map[string]string{
	"00": "Não Aplicável",
	"01": "Aberta",
	"02": "Fechada/Baú",
	"03": "Graneleiro",
	"04": "Porta-Contêiner",
	"05": "Sider",
}

// DescreverTipoVeiculo monta o tipo genérico a partir dos códigos tpRod/tpCar
// do manifesto; usado quando o veículo não está no cadastro local.
func DescreverTipoVeiculo(tpRod, tpCar string) string {
	if tpRod == "" && tpCar == "" {
		return ""
	}
	rod, ok := tiposRodado[tpRod]
	if !ok {
		rod = orTraco(tpRod)
	}
	car, ok := tiposCarroceria[tpCar]
	if !ok {
		car = orTraco(tpCar)
	}
	return fmt.Sprintf("Rodado: %s / Carroceria: %s", rod, car)
}

func orTraco(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
