package nfe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const xmlNfeDiesel = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe">
  <NFe>
    <infNFe Id="NFe50062599888777000166550010007744011000077440">
      <ide>
        <nNF>774401</nNF>
        <serie>1</serie>
        <dhEmi>2025-03-09T07:15:00-04:00</dhEmi>
      </ide>
      <emit>
        <CNPJ>99888777000166</CNPJ>
        <xNome>POSTO TREVO LTDA</xNome>
        <enderEmit>
          <xLgr>ROD BR 163</xLgr>
          <nro>KM 12</nro>
          <xBairro>ZONA RURAL</xBairro>
          <xMun>ITAPORA</xMun>
          <UF>MS</UF>
        </enderEmit>
      </emit>
      <dest>
        <CNPJ>11222333000144</CNPJ>
        <xNome>TRANSPORTADORA VALE VERDE LTDA</xNome>
        <enderDest>
          <xMun>ITAPORA</xMun>
          <UF>MS</UF>
        </enderDest>
      </dest>
      <det nItem="1">
        <prod>
          <cProd>001</cProd>
          <xProd>OLEO DIESEL B S10</xProd>
          <NCM>27101921</NCM>
          <CFOP>5656</CFOP>
          <uCom>L</uCom>
          <qCom>300.0000</qCom>
          <vUnCom>5.8000</vUnCom>
          <vProd>1740.00</vProd>
          <comb>
            <cProdANP>820101034</cProdANP>
            <descANP>820101034</descANP>
            <UFCons>MS</UFCons>
          </comb>
        </prod>
      </det>
      <det nItem="2">
        <prod>
          <cProd>002</cProd>
          <xProd>ARLA 32</xProd>
          <NCM>31021010</NCM>
          <CFOP>6102</CFOP>
          <uCom>L</uCom>
          <qCom>20.0000</qCom>
          <vUnCom>4.5000</vUnCom>
          <vProd>90.00</vProd>
        </prod>
      </det>
      <infAdic>
        <infCpl>ABASTECIMENTO VEICULO PLACA ABC-1D23 MOTORISTA JOSE</infCpl>
      </infAdic>
    </infNFe>
  </NFe>
</nfeProc>`

func TestParse_ItemCombustivel(t *testing.T) {
	itens, err := Parse([]byte(xmlNfeDiesel))
	require.NoError(t, err)
	require.Len(t, itens, 2)

	it := itens[0]
	assert.Equal(t, "50062599888777000166550010007744011000077440", it.ChaveNFe)
	assert.Equal(t, "774401", it.NumeroNFe)
	assert.Equal(t, 1, it.NumeroItem)
	assert.Equal(t, "POSTO TREVO LTDA", it.EmitNome)
	assert.Equal(t, "ROD BR 163", it.EmitLogradouro)

	assert.InDelta(t, 300.0, it.Quantidade, 1e-9)
	assert.Equal(t, "5.8", it.ValorUnitario.String())
	assert.Equal(t, "1740", it.ValorTotal.String())

	// CFOP 5xxx -> 17%; crédito arredondado a 2 casas
	assert.Equal(t, "0.17", it.Aliquota.String())
	assert.Equal(t, "295.8", it.Credito.String())

	assert.Equal(t, "820101034", it.ProdANP)
	// descANP veio com o código; resolvido para o nome conhecido
	assert.Equal(t, "OLEO DIESEL B S10 - COMUM", it.DescANP)
	assert.True(t, it.Combustivel)
	assert.True(t, it.EhDiesel())

	// placa em texto livre, sem hífen
	assert.Equal(t, "ABC1D23", it.PlacaObservada)
}

func TestParse_ItemNaoCombustivel(t *testing.T) {
	itens, err := Parse([]byte(xmlNfeDiesel))
	require.NoError(t, err)

	arla := itens[1]
	assert.Equal(t, 2, arla.NumeroItem)
	assert.False(t, arla.EhDiesel())
	// CFOP 6xxx -> 7%
	assert.Equal(t, "0.07", arla.Aliquota.String())
	assert.Equal(t, "6.3", arla.Credito.String())
	// a placa do cabeçalho vale para todas as linhas
	assert.Equal(t, "ABC1D23", arla.PlacaObservada)
}

func TestParse_ChavePeloAtributoId(t *testing.T) {
	itens, err := Parse([]byte(xmlNfeDiesel))
	require.NoError(t, err)
	// sem protNFe no fixture: a chave sai do Id com prefixo NFe removido
	assert.Len(t, itens[0].ChaveNFe, 44)
}

func TestParse_NotaSemItensDevolveCabecalho(t *testing.T) {
	xml := `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe>
	  <infNFe Id="NFe50062599888777000166550010007744011000077440">
	    <ide><nNF>1</nNF><serie>1</serie></ide>
	  </infNFe></NFe></nfeProc>`

	itens, err := Parse([]byte(xml))
	require.NoError(t, err)
	require.Len(t, itens, 1)
	assert.Equal(t, "1", itens[0].NumeroNFe)
	assert.False(t, itens[0].Combustivel)
}
