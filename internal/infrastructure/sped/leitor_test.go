package sped

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chaveSaida = "50062511222333000144550010008055121000080551"
const chaveEntrada = "50062599888777000166550010007744011000077440"

const efd = `|0000|019|0|01032025|31032025|TRANSPORTADORA VALE VERDE LTDA|11222333000144|||MS|
|0150|CLI001|COMERCIAL ALVORADA LTDA|01058|22333444000155||283123456|5002704||AV AFONSO PENA|2000||CENTRO|
|0150|FOR001|POSTO TREVO LTDA|01058|99888777000166||283654321|5004502||ROD BR 163|KM 12||ZONA RURAL|
|C100|1|0|CLI001|55|00|1|805512|` + chaveSaida + `|10032025|10032025|2000,00|
|C190|000|5102|17,00|2000,00|2000,00|340,00|0|0|0|0||
|C100|0|1|FOR001|55|00|1|774401|` + chaveEntrada + `|09032025|09032025|1740,00|
|C190|060|1653|0,00|1740,00|0,00|0,00|0|0|0|0||
|C990|7|
`

func lerTeste(t *testing.T) *Base {
	t.Helper()
	b, err := Ler(strings.NewReader(efd))
	require.NoError(t, err)
	return b
}

func TestLer_DocumentosModelo55(t *testing.T) {
	b := lerTeste(t)
	assert.Equal(t, 2, b.Documentos())
	assert.Equal(t, 2, b.Participantes())

	saida, ok := b.DocumentoPorChave(chaveSaida)
	require.True(t, ok)
	assert.True(t, saida.Saida)
	assert.Equal(t, "805512", saida.NumDoc)
	assert.Equal(t, "CLI001", saida.CodPart)
	require.NotNil(t, saida.DtDoc)
	assert.Equal(t, 10, saida.DtDoc.Day())

	entrada, ok := b.DocumentoPorChave(chaveEntrada)
	require.True(t, ok)
	assert.False(t, entrada.Saida)
}

func TestLer_ImpostosC190SeguemOC100Anterior(t *testing.T) {
	b := lerTeste(t)

	impostos := b.ImpostosPorChave(chaveSaida)
	require.Len(t, impostos, 1)
	assert.Equal(t, "000", impostos[0].CST)
	assert.Equal(t, "5102", impostos[0].CFOP)
	assert.Equal(t, "2000", impostos[0].ValorOperacao.String())
	assert.Equal(t, "340", impostos[0].ValorICMS.String())

	impostosEntrada := b.ImpostosPorChave(chaveEntrada)
	require.Len(t, impostosEntrada, 1)
	assert.Equal(t, "1653", impostosEntrada[0].CFOP)
}

func TestLer_EnderecoPorChave(t *testing.T) {
	b := lerTeste(t)

	end, ok := b.EnderecoPorChave(chaveSaida)
	require.True(t, ok)
	assert.Equal(t, "AV AFONSO PENA", end.Logradouro)
	assert.Equal(t, "2000", end.Numero)
	assert.Equal(t, "CENTRO", end.Bairro)
	assert.Equal(t, "MS", end.UF) // 5002704 -> 50 -> MS
	assert.Equal(t, "COMERCIAL ALVORADA LTDA", end.Nome)
	// a EFD não nomeia o município; a cidade fica por conta do manifesto
	assert.Empty(t, end.Cidade)
}

func TestLer_ChaveDesconhecida(t *testing.T) {
	b := lerTeste(t)
	_, ok := b.DocumentoPorChave("00000000000000000000000000000000000000000000")
	assert.False(t, ok)
	assert.Empty(t, b.ImpostosPorChave("qualquer"))
}

func TestLer_LinhasMalformadasSaoIgnoradas(t *testing.T) {
	b, err := Ler(strings.NewReader("lixo sem pipe\n|C100|só|campos|demais\n\n|C190|órfão|5102|\n"))
	require.NoError(t, err)
	assert.Zero(t, b.Documentos())
}
