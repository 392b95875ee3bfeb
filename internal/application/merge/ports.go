package merge

import (
	"context"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

// ConsultaSped acesso de leitura à escrituração fiscal (EFD): endereços de
// entrega autoritativos, itens de imposto e a direção do movimento por chave
// de NF-e.
type ConsultaSped interface {
	// EnderecoPorChave devolve o endereço de entrega resolvido para a chave.
	EnderecoPorChave(chave string) (*entity.EnderecoEntrega, bool)
	// DocumentoPorChave devolve o C100 escriturado da chave (inclui a
	// direção entrada/saída e a data do documento).
	DocumentoPorChave(chave string) (*entity.DocumentoSped, bool)
	// ImpostosPorChave devolve os registros C190 do documento da chave.
	ImpostosPorChave(chave string) []entity.ItemImpostoSped
}

// CadastroVeiculos consulta o cadastro local de veículos. Ausência não é
// fatal: o merge cai para o tipo genérico derivado de tpRod/tpCar.
type CadastroVeiculos interface {
	BuscarVeiculo(placa, renavam string) (*entity.Veiculo, bool)
}

// GeradorMapa materializa o mapa da rota (artefato HTML). Devolve o caminho
// do arquivo gerado; falha aqui nunca derruba o registro.
type GeradorMapa interface {
	GerarMapa(nome string, polilinha []entity.GeoPoint, pontos []entity.Waypoint) (string, error)
}

// ServicoRota contrato do serviço de distância (implementado por rota.Servico;
// mockado nos testes).
type ServicoRota interface {
	Calcular(ctx context.Context, pontos []entity.Waypoint, fecharCiclo bool) (*entity.ResultadoRota, error)
}

// LogCalculo trilha textual do processamento, voltada ao operador. Nunca é
// lida programaticamente.
type LogCalculo interface {
	Registrar(formato string, args ...any)
}
