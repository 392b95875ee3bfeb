package processamento

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcandia/frota-fiscal/internal/application/merge"
	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/registros"
	"github.com/jcandia/frota-fiscal/internal/infrastructure/runlog"
	"github.com/jcandia/frota-fiscal/pkg/logger"
)

const xmlMdfeLote = `<mdfeProc xmlns="http://www.portalfiscal.inf.br/mdfe"><MDFe><infMDFe>
  <ide><serie>1</serie><nMDF>1021</nMDF>
    <dhEmi>2025-03-10T08:30:00-04:00</dhEmi>
    <UFIni>MS</UFIni><UFFim>MS</UFFim>
    <infMunCarrega><cMunCarrega>5004502</cMunCarrega><xMunCarrega>ITAPORA</xMunCarrega></infMunCarrega>
  </ide>
  <emit><CNPJ>11222333000144</CNPJ><xNome>TRANSPORTADORA</xNome>
    <enderEmit><xMun>ITAPORA</xMun><UF>MS</UF></enderEmit></emit>
  <infModal><rodo><veicTracao><placa>ABC1D23</placa><RENAVAM>00123456789</RENAVAM></veicTracao></rodo></infModal>
  <infDoc><infMunDescarga><cMunDescarga>5002704</cMunDescarga><xMunDescarga>CAMPO GRANDE</xMunDescarga>
    <infNFe><chNFe>50062500000000000000000000000000000000000001</chNFe></infNFe>
  </infMunDescarga></infDoc>
</infMDFe></MDFe></mdfeProc>`

const xmlNfeLote = `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe>
  <infNFe Id="NFe50062599888777000166550010007744011000077440">
  <ide><nNF>774401</nNF><serie>1</serie><dhEmi>2025-03-09T07:15:00-04:00</dhEmi></ide>
  <emit><CNPJ>99888777000166</CNPJ><xNome>POSTO TREVO</xNome>
    <enderEmit><xMun>ITAPORA</xMun><UF>MS</UF></enderEmit></emit>
  <det nItem="1"><prod>
    <xProd>OLEO DIESEL B S10</xProd><CFOP>5656</CFOP>
    <qCom>300.0000</qCom><vUnCom>5.8000</vUnCom><vProd>1740.00</vProd>
    <comb><cProdANP>820101034</cProdANP><UFCons>MS</UFCons></comb>
  </prod></det>
</infNFe></NFe></nfeProc>`

const efdLote = `|0150|CLI001|COMERCIAL ALVORADA|01058|22333444000155|||5002704||AV AFONSO PENA|2000||CENTRO|
|C100|1|0|CLI001|55|00|1|805512|50062500000000000000000000000000000000000001|10032025|10032025|2000,00|
|C190|000|5102|17,00|2000,00|2000,00|340,00|
`

type rotaFixa struct{ km float64 }

func (r *rotaFixa) Calcular(_ context.Context, pontos []entity.Waypoint, _ bool) (*entity.ResultadoRota, error) {
	return &entity.ResultadoRota{TotalKm: r.km, Estrategia: entity.EstrategiaProvedor, Pontos: pontos}, nil
}

func montarLote(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mdfe_1021.xml"), []byte(xmlMdfeLote), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nfe_774401.xml"), []byte(xmlNfeLote), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "efd.txt"), []byte(efdLote), 0o644))
	return dir
}

func novoServicoTeste(t *testing.T, rota merge.ServicoRota) (*Servico, *runlog.Trilha) {
	t.Helper()
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	trilha := runlog.Nova(filepath.Join(t.TempDir(), "calculo.log"))
	store := registros.Novo(filepath.Join(t.TempDir(), "registros.json"))

	fabrica := func(consulta merge.ConsultaSped) *merge.UseCase {
		return merge.NovoUseCase(rota, consulta, nil, nil, trilha, log,
			merge.Opcoes{FecharCiclo: true, ConsumoKmPorLitro: 3.0})
	}
	return NovoServico(fabrica, store, trilha, nil, log), trilha
}

func aguardar(t *testing.T, s *Servico) Execucao {
	t.Helper()
	prazo := time.After(5 * time.Second)
	for {
		if exec, ok := s.Estado(); ok && exec.Estado != EstadoExecutando {
			return exec
		}
		select {
		case <-prazo:
			t.Fatal("lote não terminou no prazo")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestProcessar_LoteCompleto(t *testing.T) {
	dir := montarLote(t)
	s, _ := novoServicoTeste(t, &rotaFixa{km: 800})

	id, err := s.Processar(dir)
	require.NoError(t, err)
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", id.String())

	exec := aguardar(t, s)
	assert.Equal(t, EstadoConcluido, exec.Estado)
	assert.Equal(t, 100, exec.Percentual)
	assert.Equal(t, 1, exec.Registros)

	lote := s.Registros()
	require.Len(t, lote, 1)
	r := lote[0]
	assert.Equal(t, "1021", r.MdfeNumero)
	assert.Equal(t, entity.VinculadaSim, r.Vinculada)
	assert.InDelta(t, 800.0/3.0, *r.QuantidadeLitros, 0.001)
	// referência de carga veio da EFD
	assert.Equal(t, "805512", r.NFeNumero)
	assert.Equal(t, "5102", r.CFOP)
}

func TestProcessar_RecusaLoteConcorrente(t *testing.T) {
	dir := montarLote(t)
	s, _ := novoServicoTeste(t, &rotaFixa{km: 800})

	_, err := s.Processar(dir)
	require.NoError(t, err)

	// o segundo pedido pode chegar antes ou depois do fim do primeiro;
	// só o estado "executando" recusa
	if exec, ok := s.Estado(); ok && exec.Estado == EstadoExecutando {
		_, err = s.Processar(dir)
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrProcessamentoAtivo)
		}
	}
	aguardar(t, s)
}

func TestProcessar_DiretorioSemMdfe(t *testing.T) {
	s, trilha := novoServicoTeste(t, &rotaFixa{km: 800})

	_, err := s.Processar(t.TempDir())
	require.NoError(t, err) // a falha aparece na execução, não no disparo

	exec := aguardar(t, s)
	assert.Equal(t, EstadoErro, exec.Estado)
	assert.Contains(t, exec.Mensagem, "Erro")

	// artefatos do lote falho também são gravados
	dados, err := os.ReadFile(trilha.Caminho())
	require.NoError(t, err)
	assert.Contains(t, string(dados), "ERRO")
}

func TestEditarRota_ReprocessaComDistanciaManual(t *testing.T) {
	dir := montarLote(t)
	s, _ := novoServicoTeste(t, &rotaFixa{km: 800})

	_, err := s.Processar(dir)
	require.NoError(t, err)
	aguardar(t, s)

	antes := s.Registros()
	require.Len(t, antes, 1)
	require.InDelta(t, 800.0/3.0, *antes[0].QuantidadeLitros, 0.001)

	chave := "11222333000144|1|1021|ABC1D23"
	manual := 300.0
	depois, err := s.EditarRota(chave, nil, &manual)
	require.NoError(t, err)
	require.Len(t, depois, 1)
	assert.Equal(t, "Distância informada manualmente", depois[0].Roteiro)
	assert.InDelta(t, 100.0, *depois[0].QuantidadeLitros, 0.001)
}

func TestEditarRota_ViagemDesconhecida(t *testing.T) {
	dir := montarLote(t)
	s, _ := novoServicoTeste(t, &rotaFixa{km: 800})

	_, err := s.Processar(dir)
	require.NoError(t, err)
	aguardar(t, s)

	_, err = s.EditarRota("x|y|z|w", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNaoEncontrado)
}

func TestEditarRota_SemLoteAnterior(t *testing.T) {
	s, _ := novoServicoTeste(t, &rotaFixa{km: 800})
	_, err := s.EditarRota("qualquer", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNaoEncontrado)
}
