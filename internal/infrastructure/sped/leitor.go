// Package sped lê o arquivo texto da EFD ICMS/IPI (campos separados por
// pipe) e indexa o que o merge consulta: participantes (0150), documentos
// NF-e (C100, modelo 55) e o analítico de impostos (C190).
//
// O leitor é tolerante: registro malformado é pulado, nunca aborta o
// arquivo. A escrituração real vem com lixo.
package sped

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jcandia/frota-fiscal/internal/domain/entity"
	"github.com/jcandia/frota-fiscal/pkg/fiscal"
)

// Base os índices montados a partir de um arquivo EFD. Implementa a consulta
// usada pelo merge; leitura é livre de lock porque a Base é imutável após Ler.
type Base struct {
	participantes map[string]*entity.ParticipanteSped
	documentos    map[string]*entity.DocumentoSped
	impostos      map[string][]entity.ItemImpostoSped
}

// LerArquivo lê a EFD do caminho indicado. O arquivo oficial é gravado em
// ISO-8859-1; ASCII puro passa intacto pela decodificação.
func LerArquivo(caminho string) (*Base, error) {
	f, err := os.Open(caminho)
	if err != nil {
		return nil, fmt.Errorf("abrir EFD %s: %w", caminho, err)
	}
	defer f.Close()

	b, err := Ler(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", caminho, err)
	}
	return b, nil
}

// Ler interpreta o texto da EFD.
func Ler(r io.Reader) (*Base, error) {
	b := &Base{
		participantes: make(map[string]*entity.ParticipanteSped),
		documentos:    make(map[string]*entity.DocumentoSped),
		impostos:      make(map[string][]entity.ItemImpostoSped),
	}

	// C190 pertence ao C100 imediatamente anterior
	var chaveCorrente string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		linha := scanner.Text()
		if linha == "" || linha[0] != '|' {
			continue
		}
		campos := strings.Split(linha, "|") // campos[0] vazio, campos[1] = registro

		switch campo(campos, 1) {
		case "0150":
			b.ler0150(campos)
		case "C100":
			chaveCorrente = b.lerC100(campos)
		case "C190":
			if chaveCorrente != "" {
				b.lerC190(chaveCorrente, campos)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ler EFD: %w", err)
	}
	return b, nil
}

// |0150|COD_PART|NOME|COD_PAIS|CNPJ|CPF|IE|COD_MUN|SUFRAMA|END|NUM|COMPL|BAIRRO|
func (b *Base) ler0150(campos []string) {
	codPart := campo(campos, 2)
	if codPart == "" {
		return
	}
	b.participantes[codPart] = &entity.ParticipanteSped{
		CodPart:    codPart,
		Nome:       campo(campos, 3),
		CodMunIBGE: inteiro(campo(campos, 8)),
		Logradouro: campo(campos, 10),
		Numero:     campo(campos, 11),
		Bairro:     campo(campos, 13),
	}
}

// |C100|IND_OPER|IND_EMIT|COD_PART|COD_MOD|COD_SIT|SER|NUM_DOC|CHV_NFE|DT_DOC|...
func (b *Base) lerC100(campos []string) string {
	if campo(campos, 5) != "55" { // só NF-e
		return ""
	}
	chave := fiscal.LimparChave(campo(campos, 9))
	if !fiscal.ChaveValida(chave) {
		return ""
	}
	b.documentos[chave] = &entity.DocumentoSped{
		ChaveNFe: chave,
		CodPart:  campo(campos, 4),
		Serie:    campo(campos, 7),
		NumDoc:   campo(campos, 8),
		DtDoc:    dataSped(campo(campos, 10)),
		Saida:    campo(campos, 2) == "1", // IND_OPER 0=entrada, 1=saída
	}
	return chave
}

// |C190|CST_ICMS|CFOP|ALIQ_ICMS|VL_OPR|VL_BC_ICMS|VL_ICMS|...
func (b *Base) lerC190(chave string, campos []string) {
	b.impostos[chave] = append(b.impostos[chave], entity.ItemImpostoSped{
		CST:           campo(campos, 2),
		CFOP:          campo(campos, 3),
		ValorOperacao: valorSped(campo(campos, 5)),
		BaseICMS:      valorSped(campo(campos, 6)),
		ValorICMS:     valorSped(campo(campos, 7)),
	})
}

// DocumentoPorChave devolve o C100 da chave, se escriturado.
func (b *Base) DocumentoPorChave(chave string) (*entity.DocumentoSped, bool) {
	doc, ok := b.documentos[fiscal.LimparChave(chave)]
	return doc, ok
}

// ImpostosPorChave devolve as linhas C190 do documento, na ordem do arquivo.
func (b *Base) ImpostosPorChave(chave string) []entity.ItemImpostoSped {
	return b.impostos[fiscal.LimparChave(chave)]
}

// EnderecoPorChave monta o endereço de entrega a partir do participante do
// documento. A EFD não traz o nome do município, só o código IBGE; a cidade
// fica vazia e o chamador completa com o que o manifesto declarou.
func (b *Base) EnderecoPorChave(chave string) (*entity.EnderecoEntrega, bool) {
	doc, ok := b.documentos[fiscal.LimparChave(chave)]
	if !ok {
		return nil, false
	}
	p, ok := b.participantes[doc.CodPart]
	if !ok {
		return nil, false
	}
	return &entity.EnderecoEntrega{
		Logradouro: p.Logradouro,
		Numero:     p.Numero,
		Bairro:     p.Bairro,
		UF:         fiscal.UFPorCodMun(p.CodMunIBGE),
		Nome:       p.Nome,
	}, true
}

// Participantes quantidade de registros 0150 lidos.
func (b *Base) Participantes() int { return len(b.participantes) }

// Documentos quantidade de C100 modelo 55 lidos.
func (b *Base) Documentos() int { return len(b.documentos) }

func campo(campos []string, i int) string {
	if i < 0 || i >= len(campos) {
		return ""
	}
	return strings.TrimSpace(campos[i])
}

func inteiro(s string) int {
	v := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		v = v*10 + int(r-'0')
	}
	return v
}

// dataSped DT_DOC no formato ddmmaaaa.
func dataSped(s string) *time.Time {
	t, err := time.Parse("02012006", s)
	if err != nil {
		return nil
	}
	return &t
}

// valorSped números da EFD usam vírgula decimal.
func valorSped(s string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return v
}
