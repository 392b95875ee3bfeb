package registros

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
)

func TestStore_GravarECarregar(t *testing.T) {
	s := Novo(filepath.Join(t.TempDir(), "registros.json"))

	litros := 266.666667
	lote := []*entity.RegistroConsolidado{
		{MdfeNumero: "1021", Placa: "ABC1D23", Vinculada: entity.VinculadaSim, QuantidadeLitros: &litros},
	}
	require.NoError(t, s.Gravar(lote))

	lido, err := s.Carregar()
	require.NoError(t, err)
	require.Len(t, lido, 1)
	assert.Equal(t, "1021", lido[0].MdfeNumero)
	assert.InDelta(t, litros, *lido[0].QuantidadeLitros, 1e-9)
}

func TestStore_ArquivoAusente(t *testing.T) {
	s := Novo(filepath.Join(t.TempDir(), "nao-existe.json"))
	lido, err := s.Carregar()
	require.NoError(t, err)
	assert.Nil(t, lido)
}
