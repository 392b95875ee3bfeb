// Package merge cruza manifestos (MDF-e), notas de combustível (NF-e) e a
// escrituração (SPED EFD) num registro consolidado por viagem: distância
// calculada, litros alocados do razão FIFO e crédito de ICMS apurado.
//
// O processamento é deliberadamente sequencial: o razão do alocador é um
// recurso único e dependente de ordem; paralelizar viagens exigiria
// particioná-lo ou protegê-lo com lock, e o projeto prefere a ordem FIFO
// determinística.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcandia/frota-fiscal/internal/application/alocacao"
	"github.com/jcandia/frota-fiscal/internal/domain"
	"github.com/jcandia/frota-fiscal/internal/domain/credito"
	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/logger"
	"github.com/jcandia/frota-fiscal/pkg/texto"
)

// Opcoes parâmetros do merge.
type Opcoes struct {
	// FecharCiclo soma a perna de retorno à origem.
	FecharCiclo bool
	// ConsumoKmPorLitro assunção fixa de consumo para estimar a necessidade
	// de diesel da viagem (padrão 3.0).
	ConsumoKmPorLitro float64
}

// UseCase o motor de reconciliação por viagem.
type UseCase struct {
	rota     ServicoRota
	sped     ConsultaSped
	veiculos CadastroVeiculos
	mapa     GeradorMapa
	trilha   LogCalculo
	log      *logger.Logger
	opcoes   Opcoes
}

// NovoUseCase constrói o caso de uso. mapa e veiculos podem ser nil (os
// enriquecimentos correspondentes são pulados).
func NovoUseCase(
	rota ServicoRota,
	sped ConsultaSped,
	veiculos CadastroVeiculos,
	mapa GeradorMapa,
	trilha LogCalculo,
	log *logger.Logger,
	opcoes Opcoes,
) *UseCase {
	if opcoes.ConsumoKmPorLitro <= 0 {
		opcoes.ConsumoKmPorLitro = 3.0
	}
	return &UseCase{
		rota:     rota,
		sped:     sped,
		veiculos: veiculos,
		mapa:     mapa,
		trilha:   trilha,
		log:      log,
		opcoes:   opcoes,
	}
}

// ProcessarLote produz um registro consolidado por viagem (e um por NF-e de
// diesel que sobrar sem vínculo). O razão de litros é construído do zero a
// cada chamada: é por isso que a edição de rota reprocessa o lote inteiro em
// vez de recalcular uma viagem isolada — litros já comprometidos com uma
// viagem anterior não estão mais disponíveis para as seguintes.
//
// edicoes mapeia a chave de dedup da viagem para waypoints definidos
// manualmente pelo operador; quando presentes, substituem a montagem via SPED.
func (uc *UseCase) ProcessarLote(
	ctx context.Context,
	manifestos []*entity.Manifesto,
	itens []*entity.ItemNFe,
	edicoes map[string][]entity.Waypoint,
) ([]*entity.RegistroConsolidado, error) {
	if len(manifestos) == 0 {
		return nil, fmt.Errorf("%w: nenhum manifesto no lote", domain.ErrEntradaInvalida)
	}

	uc.trilha.Registrar("Iniciando merge: %d manifesto(s), %d item(ns) de NF-e.", len(manifestos), len(itens))

	// Ordem por data da viagem, ascendente (sem data por último). A mesma
	// ordem vale para o reprocessamento pós-edição de rota.
	ordenados := make([]*entity.Manifesto, len(manifestos))
	copy(ordenados, manifestos)
	sort.SliceStable(ordenados, func(i, j int) bool {
		di, dj := ordenados[i].DataReferencia(), ordenados[j].DataReferencia()
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})

	aloc := alocacao.NovoAlocador(itens)
	uc.trilha.Registrar("Razão de diesel inicializado com %.3f L disponíveis.", aloc.SaldoTotal())

	chavesUsadas := make(map[string]bool) // chaves de NF-e de diesel já vinculadas
	vistos := make(map[string]bool)       // dedup de viagens
	var registros []*entity.RegistroConsolidado

	for _, m := range ordenados {
		if err := ctx.Err(); err != nil {
			return registros, err
		}

		chave := m.ChaveDedup()
		if vistos[chave] {
			uc.trilha.Registrar("AVISO: MDF-e %s (chave %s) repetido no lote; ignorado.", m.Numero, chave)
			uc.log.Warn().Str("mdfe", m.Numero).Msg("manifesto duplicado ignorado")
			continue
		}
		vistos[chave] = true

		if uc.somenteEntradas(m) {
			uc.trilha.Registrar("MDF-e %s: todas as NF-e escrituradas são de entrada; viagem excluída do demonstrativo.", m.Numero)
			continue
		}

		r := uc.consolidarViagem(ctx, m, aloc, itens, chavesUsadas, edicoes[chave])
		registros = append(registros, r)
	}

	registros = append(registros, uc.notasSemVinculo(itens, chavesUsadas)...)

	uc.trilha.Registrar("Merge finalizado: %d registro(s); saldo de diesel remanescente %.3f L.", len(registros), aloc.SaldoTotal())
	return registros, nil
}

// somenteEntradas informa se o manifesto tem escrituração e ela é toda de
// entrada. A direção registrada no SPED é autoritativa: manifesto cuja carga
// só aparece como entrada não entra no demonstrativo.
func (uc *UseCase) somenteEntradas(m *entity.Manifesto) bool {
	encontrados, saidas := 0, 0
	for _, ch := range m.Chaves() {
		doc, ok := uc.sped.DocumentoPorChave(ch)
		if !ok {
			continue
		}
		encontrados++
		if doc.Saida {
			saidas++
		}
	}
	return encontrados > 0 && saidas == 0
}

// consolidarViagem a máquina de estados por viagem: origem, waypoints,
// distância, estimativa de consumo, alocação (ou matching), referências de
// carga, crédito e mapa. Condições recuperáveis nunca interrompem o lote.
func (uc *UseCase) consolidarViagem(
	ctx context.Context,
	m *entity.Manifesto,
	aloc *alocacao.Alocador,
	itens []*entity.ItemNFe,
	chavesUsadas map[string]bool,
	edicao []entity.Waypoint,
) *entity.RegistroConsolidado {
	r := uc.registroBase(m)

	// 1) Origem
	origem := uc.resolverOrigem(m)
	if origem == "" {
		uc.trilha.Registrar("ERRO: origem da viagem do MDF-e %s não pôde ser determinada.", m.Numero)
		r.Roteiro = "Origem da viagem indeterminada"
		r.Vinculada = entity.VinculadaNao
		return r
	}
	uc.trilha.Registrar("MDF-e %s: origem definida como %q.", m.Numero, origem)

	// 2) Waypoints
	pontos := edicao
	if pontos == nil {
		pontos = uc.montarWaypoints(m, origem)
	} else {
		uc.trilha.Registrar("MDF-e %s: usando %d waypoint(s) editado(s) pelo operador.", m.Numero, len(pontos))
	}

	// 3) Distância
	var distancia *float64
	if m.DistanciaManualKm != nil {
		d := *m.DistanciaManualKm
		distancia = &d
		r.Roteiro = "Distância informada manualmente"
		uc.trilha.Registrar("MDF-e %s: distância manual de %.1f km.", m.Numero, d)
	} else {
		res, err := uc.rota.Calcular(ctx, pontos, uc.opcoes.FecharCiclo)
		if err != nil {
			uc.trilha.Registrar("MDF-e %s: falha no cálculo da rota: %v.", m.Numero, err)
			r.Roteiro = fmt.Sprintf("Falha no cálculo da rota: %v", err)
			if !errors.Is(err, domain.ErrPontosInsuficientes) {
				uc.log.Warn().Err(err).Str("mdfe", m.Numero).Msg("rota não calculada")
			}
		} else {
			d := res.TotalKm
			distancia = &d
			r.Roteiro = descreverRoteiro(res.Pontos)
			r.Waypoints = res.Pontos
			r.Avisos = res.AvisosTexto()
			uc.trilha.Registrar("MDF-e %s: distância de %.1f km via %s. %s", m.Numero, d, res.Estrategia, r.Avisos)

			// 7) Mapa da rota (ausência não é fatal)
			if uc.mapa != nil && len(res.Polilinha) >= 2 {
				if caminho, errMapa := uc.mapa.GerarMapa("rota_"+m.Numero, res.Polilinha, res.Pontos); errMapa == nil {
					r.MapaPath = caminho
				} else {
					uc.trilha.Registrar("AVISO: mapa da rota do MDF-e %s não gerado: %v.", m.Numero, errMapa)
				}
			}
		}
	}
	r.DistanciaPercorridaKm = distancia

	// 4) Estimativa de consumo (alvo do alocador — não é a quantidade faturada)
	var estimativa *float64
	if distancia != nil {
		e := *distancia / uc.opcoes.ConsumoKmPorLitro
		estimativa = &e
		uc.trilha.Registrar("MDF-e %s: necessidade estimada de %.3f L (%.1f km / %.1f km/L).",
			m.Numero, e, *distancia, uc.opcoes.ConsumoKmPorLitro)
	}

	// 5) Alocação FIFO; sem alocação, tenta o matching por pontuação
	var ufFornecedor string
	alocs := aloc.Alocar(estimativa)
	if len(alocs) > 0 {
		ufFornecedor = uc.consolidarAlocacoes(r, alocs, chavesUsadas)
		uc.trilha.Registrar("MDF-e %s: %d alocação(ões), %.3f L vinculados.", m.Numero, len(alocs), *r.QuantidadeLitros)
	} else {
		r.Vinculada = entity.VinculadaNao
		ufFornecedor = uc.tentarMatching(m, r, aloc, itens, estimativa, pontos, chavesUsadas)
	}

	// 6) Referências de carga via SPED (independente do vínculo de combustível)
	uc.enriquecerComSped(m, r)

	// Crédito: alíquota pela regra de UF; o valor sobrescreve o proporcional
	// das linhas quando há total de combustível.
	ufDest := r.UFDest
	if ufDest == "" {
		ufDest = m.UFFim
	}
	aliq := credito.Aliquota(ufFornecedor, ufDest, m.UFIni, m.UFFim)
	r.AliquotaCredito = &aliq
	if r.ValorTotalCombustivel != nil {
		v := credito.Valor(*r.ValorTotalCombustivel, aliq)
		r.ValorCredito = &v
	}

	return r
}

// registroBase preenche identidade do veículo e da viagem.
func (uc *UseCase) registroBase(m *entity.Manifesto) *entity.RegistroConsolidado {
	r := &entity.RegistroConsolidado{
		ChaveDedup: m.ChaveDedup(),
		Renavam:    m.Renavam,
		Placa:      m.Placa,
		MdfeNumero: m.Numero,
		Data:       m.DataReferencia(),
		UFEmit:     m.EmitUF,
		CidadeEmit: texto.Titulo(m.EmitCidade),
		Vinculada:  entity.VinculadaNao,
	}

	if uc.veiculos != nil {
		if v, ok := uc.veiculos.BuscarVeiculo(m.Placa, m.Renavam); ok {
			r.Modelo = v.Modelo
			r.Tipo = v.Tipo
		}
	}
	if r.Tipo == "" {
		r.Tipo = entity.DescreverTipoVeiculo(m.TpRod, m.TpCar)
	}
	return r
}

// resolverOrigem "Cidade, UF" do manifesto, com fallback para o emitente e,
// em último caso, só a UF.
func (uc *UseCase) resolverOrigem(m *entity.Manifesto) string {
	cidade := m.OrigemCidade
	if cidade == "" {
		cidade = m.EmitCidade
	}
	uf := m.UFIni
	if uf == "" {
		uf = m.EmitUF
	}
	if cidade != "" && uf != "" {
		return texto.Titulo(cidade) + ", " + uf
	}
	if m.UFIni != "" {
		return m.UFIni
	}
	return m.UFFim
}

// montarWaypoints origem + um ponto por chave com endereço resolvível via
// SPED; chave desconhecida é pulada com aviso. Zero destinos resolvíveis cai
// para o primeiro destino declarado no próprio manifesto.
func (uc *UseCase) montarWaypoints(m *entity.Manifesto, origem string) []entity.Waypoint {
	pontos := []entity.Waypoint{{Endereco: origem, Cidade: origem}}

	for _, ch := range m.Chaves() {
		destino := m.DestinosPorChave[ch]
		end, ok := uc.sped.EnderecoPorChave(ch)
		if !ok {
			uc.trilha.Registrar("AVISO: NF-e %s sem endereço na escrituração; destino ignorado.", ch)
			continue
		}

		// completa o endereço do SPED com cidade/UF declaradas no manifesto
		resolvido := *end
		if resolvido.Cidade == "" {
			resolvido.Cidade = texto.Titulo(destino.Cidade)
		}
		if resolvido.UF == "" {
			resolvido.UF = destino.UF
		}
		linha := resolvido.Linha()
		if linha == "" {
			continue
		}
		uc.trilha.Registrar("Destino da NF-e %s resolvido via SPED: %s.", ch, linha)
		pontos = append(pontos, entity.Waypoint{
			Endereco: linha,
			Cidade:   resolvido.Cidade,
			ChaveNFe: ch,
		})
	}

	if len(pontos) == 1 {
		if fallback := uc.primeiroDestinoDeclarado(m); fallback != "" {
			uc.trilha.Registrar("Nenhum destino resolvido via SPED; usando destino declarado %q.", fallback)
			pontos = append(pontos, entity.Waypoint{Endereco: fallback, Cidade: fallback})
		}
	}
	return pontos
}

func (uc *UseCase) primeiroDestinoDeclarado(m *entity.Manifesto) string {
	for _, ch := range m.Chaves() {
		d := m.DestinosPorChave[ch]
		if d.Cidade != "" && d.UF != "" {
			return texto.Titulo(d.Cidade) + ", " + d.UF
		}
		if d.UF != "" {
			return d.UF
		}
	}
	return m.UFFim
}

// consolidarAlocacoes condensa as alocações numa única linha: litros somados,
// valor total ponderado, crédito proporcional das linhas e preço médio.
// Devolve a UF do fornecedor do combustível (primeira alocação).
func (uc *UseCase) consolidarAlocacoes(r *entity.RegistroConsolidado, alocs []alocacao.Alocacao, chavesUsadas map[string]bool) string {
	litros := 0.0
	valorTotal := decimal.Zero
	creditoLinhas := decimal.Zero
	var numeros []string
	numerosVistos := make(map[string]bool)
	var dataAquisicao *time.Time

	for _, al := range alocs {
		it := al.Item
		litros += al.Litros
		valorTotal = valorTotal.Add(it.ValorUnitario.Mul(decimal.NewFromFloat(al.Litros)))

		if it.Quantidade > 0 {
			proporcao := decimal.NewFromFloat(al.Litros / it.Quantidade)
			creditoLinhas = creditoLinhas.Add(it.Credito.Mul(proporcao))
		}
		if it.NumeroNFe != "" && !numerosVistos[it.NumeroNFe] {
			numerosVistos[it.NumeroNFe] = true
			numeros = append(numeros, it.NumeroNFe)
		}
		dataAquisicao = maisRecente(dataAquisicao, it.DataEmissao)
		chavesUsadas[it.ChaveNFe] = true
	}

	primeiro := alocs[0].Item
	valorTotal = valorTotal.Round(2)
	creditoLinhas = creditoLinhas.Round(2)
	medio := decimal.Zero
	if litros > 0 {
		medio = valorTotal.Div(decimal.NewFromFloat(litros)).Round(4)
	}

	r.Vinculada = entity.VinculadaSim
	r.QuantidadeLitros = &litros
	r.EspecieCombustivel = primeiro.Descricao()
	r.ValorUnitario = &medio
	r.ValorTotalCombustivel = &valorTotal
	r.ValorCredito = &creditoLinhas
	r.NFeAquisicaoNumero = strings.Join(numeros, ", ")
	r.DataAquisicao = dataAquisicao
	r.FornecedorCNPJ = primeiro.EmitCNPJ
	r.FornecedorNome = primeiro.EmitNome
	r.FornecedorEndereco = enderecoEmitente(primeiro)
	return primeiro.EmitUF
}

// tentarMatching pontuação aditiva sobre as NF-e de diesel ainda sem vínculo.
// Só roda quando a alocação explícita não entregou nada. Devolve a UF do
// fornecedor quando há vínculo.
func (uc *UseCase) tentarMatching(
	m *entity.Manifesto,
	r *entity.RegistroConsolidado,
	aloc *alocacao.Alocador,
	itens []*entity.ItemNFe,
	estimativa *float64,
	pontos []entity.Waypoint,
	chavesUsadas map[string]bool,
) string {
	var candidatos []*entity.ItemNFe
	for _, it := range itens {
		if it.EhDiesel() && !chavesUsadas[it.ChaveNFe] {
			candidatos = append(candidatos, it)
		}
	}
	if len(candidatos) == 0 {
		return ""
	}

	litrosEstimados := 0.0
	if estimativa != nil {
		litrosEstimados = *estimativa
	}

	melhor, pontuacao := MelhorCandidato(m, candidatos, litrosEstimados, pontos)
	if melhor == nil {
		uc.trilha.Registrar("MDF-e %s: nenhum candidato pontuou acima de zero; viagem sem vínculo.", m.Numero)
		return ""
	}
	uc.trilha.Registrar("MDF-e %s: NF-e %s associada por pontuação (%d ponto(s)).", m.Numero, melhor.NumeroNFe, pontuacao)

	litros := melhor.Quantidade
	total := melhor.ValorTotal
	unit := melhor.ValorUnitario
	creditoLinha := melhor.Credito.Round(2)

	r.Vinculada = entity.VinculadaSim
	r.QuantidadeLitros = &litros
	r.EspecieCombustivel = melhor.Descricao()
	r.ValorUnitario = &unit
	r.ValorTotalCombustivel = &total
	r.ValorCredito = &creditoLinha
	r.NFeAquisicaoNumero = melhor.NumeroNFe
	r.DataAquisicao = melhor.DataEmissao
	r.FornecedorCNPJ = melhor.EmitCNPJ
	r.FornecedorNome = melhor.EmitNome
	r.FornecedorEndereco = enderecoEmitente(melhor)
	chavesUsadas[melhor.ChaveNFe] = true

	// a nota inteira fica comprometida com esta viagem: o saldo dela sai do
	// razão para que nenhuma viagem posterior receba os mesmos litros
	if consumido := aloc.ConsumirChave(melhor.ChaveNFe); consumido > 0 {
		uc.trilha.Registrar("MDF-e %s: %.3f L da NF-e %s retirados do razão pelo vínculo por pontuação.",
			m.Numero, consumido, melhor.NumeroNFe)
	}
	return melhor.EmitUF
}

// enriquecerComSped referências de carga (números/datas das NF-e de saída),
// itens C190 e endereço de entrega. Roda independente do vínculo de
// combustível.
func (uc *UseCase) enriquecerComSped(m *entity.Manifesto, r *entity.RegistroConsolidado) {
	chaves := m.Chaves()
	r.ChavesNFe = strings.Join(chaves, ", ")

	var numeros []string
	var dataDoc *time.Time
	var chaveFiscal string

	for _, ch := range chaves {
		doc, ok := uc.sped.DocumentoPorChave(ch)
		if !ok || !doc.Saida {
			continue
		}
		if doc.NumDoc != "" {
			numeros = append(numeros, doc.NumDoc)
		}
		dataDoc = maisRecente(dataDoc, doc.DtDoc)
		if chaveFiscal == "" {
			chaveFiscal = ch
		}
	}
	r.NFeNumero = strings.Join(numeros, ", ")
	r.DataEmissao = dataDoc

	if chaveFiscal != "" {
		if impostos := uc.sped.ImpostosPorChave(chaveFiscal); len(impostos) > 0 {
			r.CST = impostos[0].CST
			r.CFOP = impostos[0].CFOP
			icms, base, totalDoc := decimal.Zero, decimal.Zero, decimal.Zero
			for _, it := range impostos {
				icms = icms.Add(it.ValorICMS)
				base = base.Add(it.BaseICMS)
				totalDoc = totalDoc.Add(it.ValorOperacao)
			}
			r.ValorICMS = &icms
			r.BaseICMS = &base
			r.TotalDocumento = &totalDoc
		}
		if end, ok := uc.sped.EnderecoPorChave(chaveFiscal); ok {
			r.Logradouro = end.Logradouro
			r.Numero = end.Numero
			r.Bairro = end.Bairro
			if r.CidadeDest == "" {
				r.CidadeDest = end.Cidade
			}
			if r.UFDest == "" {
				r.UFDest = end.UF
			}
		}
	}
	if r.UFDest == "" {
		r.UFDest = m.UFFim
	}
}

// notasSemVinculo um registro por chave de NF-e de diesel que terminou o lote
// sem viagem: aparecem no demonstrativo como não vinculadas.
func (uc *UseCase) notasSemVinculo(itens []*entity.ItemNFe, chavesUsadas map[string]bool) []*entity.RegistroConsolidado {
	porChave := make(map[string][]*entity.ItemNFe)
	var ordem []string
	for _, it := range itens {
		if !it.EhDiesel() || chavesUsadas[it.ChaveNFe] {
			continue
		}
		if _, ok := porChave[it.ChaveNFe]; !ok {
			ordem = append(ordem, it.ChaveNFe)
		}
		porChave[it.ChaveNFe] = append(porChave[it.ChaveNFe], it)
	}

	var out []*entity.RegistroConsolidado
	for _, ch := range ordem {
		grupo := porChave[ch]
		litros := 0.0
		total := decimal.Zero
		cred := decimal.Zero
		for _, it := range grupo {
			litros += it.Quantidade
			total = total.Add(it.ValorTotal)
			cred = cred.Add(it.Credito)
		}
		total = total.Round(2)
		cred = cred.Round(2)
		medio := decimal.Zero
		if litros > 0 {
			medio = total.Div(decimal.NewFromFloat(litros)).Round(4)
		}

		primeiro := grupo[0]
		r := &entity.RegistroConsolidado{
			Vinculada:             entity.VinculadaNao,
			QuantidadeLitros:      &litros,
			EspecieCombustivel:    primeiro.Descricao(),
			ValorUnitario:         &medio,
			ValorTotalCombustivel: &total,
			ValorCredito:          &cred,
			NFeAquisicaoNumero:    primeiro.NumeroNFe,
			DataAquisicao:         primeiro.DataEmissao,
			ChavesNFe:             ch,
			FornecedorCNPJ:        primeiro.EmitCNPJ,
			FornecedorNome:        primeiro.EmitNome,
			FornecedorEndereco:    enderecoEmitente(primeiro),
			UFEmit:                primeiro.EmitUF,
			CidadeEmit:            texto.Titulo(primeiro.EmitCidade),
		}
		if !primeiro.Aliquota.IsZero() {
			aliq := primeiro.Aliquota
			r.AliquotaCredito = &aliq
		}
		uc.trilha.Registrar("NF-e %s sem viagem correspondente; emitida sem vínculo (%.3f L).", ch, litros)
		out = append(out, r)
	}
	return out
}

func descreverRoteiro(pontos []entity.Waypoint) string {
	nomes := make([]string, 0, len(pontos))
	for _, p := range pontos {
		n := p.Cidade
		if n == "" {
			n = p.Endereco
		}
		nomes = append(nomes, n)
	}
	return strings.Join(nomes, " -> ")
}

func enderecoEmitente(it *entity.ItemNFe) string {
	partes := make([]string, 0, 4)
	for _, p := range []string{it.EmitLogradouro, it.EmitNumero, it.EmitBairro, texto.Titulo(it.EmitCidade)} {
		if p != "" {
			partes = append(partes, p)
		}
	}
	return strings.Join(partes, ", ")
}
