package report

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"rebanho/backend/internal/normalize"
)

// NFRow is one invoice line in the period.
type NFRow struct {
	Numero      string
	Data        time.Time
	Contraparte string
	Descricao   string
	Item        normalize.InvoiceItem
	Valor       float64
}

// NFSummary aggregates invoice lines. The digest composer reuses it so the
// WhatsApp numbers always match the workbook.
type NFSummary struct {
	TotalNotas     int
	TotalAnimais   int
	ValorTotal     float64
	PorContraparte []ContraparteTotal
}

type ContraparteTotal struct {
	Nome    string
	Animais int
	Valor   float64
}

// SummarizeNF computes the shared invoice aggregates, resolving quantities
// through the normalize fallback chain.
func SummarizeNF(rows []NFRow) NFSummary {
	s := NFSummary{}
	notas := map[string]bool{}
	porNome := map[string]*ContraparteTotal{}

	for _, r := range rows {
		qtd := normalize.ResolveInvoiceQuantity(r.Item)
		s.TotalAnimais += qtd
		s.ValorTotal += r.Valor
		if r.Numero != "" {
			notas[r.Numero] = true
		}

		nome := r.Contraparte
		if nome == "" {
			nome = "Não informado"
		}
		t, ok := porNome[nome]
		if !ok {
			t = &ContraparteTotal{Nome: nome}
			porNome[nome] = t
		}
		t.Animais += qtd
		t.Valor += r.Valor
	}
	s.TotalNotas = len(notas)

	for _, t := range porNome {
		s.PorContraparte = append(s.PorContraparte, *t)
	}
	sort.Slice(s.PorContraparte, func(i, j int) bool {
		if s.PorContraparte[i].Valor != s.PorContraparte[j].Valor {
			return s.PorContraparte[i].Valor > s.PorContraparte[j].Valor
		}
		return s.PorContraparte[i].Nome < s.PorContraparte[j].Nome
	})
	return s
}

func (b *Builder) FetchNF(ctx context.Context, period normalize.Period, tipo string) ([]NFRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT COALESCE(numero, ''), data_emissao, COALESCE(contraparte, ''), COALESCE(descricao, ''),
			quantidade, COALESCE(modo_registro, ''), dados_json, COALESCE(valor, 0)
		FROM notas_fiscais
		WHERE tipo = $1 AND data_emissao BETWEEN $2 AND $3
		ORDER BY data_emissao, numero
	`, tipo, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NFRow
	for rows.Next() {
		var r NFRow
		var quantidade *int
		var payload []byte
		var modo string
		if err := rows.Scan(&r.Numero, &r.Data, &r.Contraparte, &r.Descricao, &quantidade, &modo, &payload, &r.Valor); err != nil {
			return nil, err
		}
		r.Item = normalize.InvoiceItem{Quantidade: quantidade, ModoRegistro: modo}
		if len(payload) > 0 {
			// Imported payload shapes drift; a bad blob just means no
			// quantity aliases to fall back on.
			_ = json.Unmarshal(payload, &r.Item.Payload)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildNF(ctx context.Context, period normalize.Period, tipo, title string) ([]byte, error) {
	rows, err := b.FetchNF(ctx, period, tipo)
	if err != nil {
		return nil, err
	}
	summary := SummarizeNF(rows)

	contraparteLabel := "Fornecedor"
	if tipo == "saida" {
		contraparteLabel = "Comprador"
	}

	wb := newWorkbook()
	wb.addResumo(title, period, b.now(), []indicator{
		{"Total de notas", summary.TotalNotas},
		{"Total de animais", summary.TotalAnimais},
		{"Valor total", FormatBRL(summary.ValorTotal)},
		{"Registros no período", len(rows)},
	})

	detail := make([][]any, 0, len(rows))
	for _, r := range rows {
		detail = append(detail, []any{
			r.Numero,
			normalize.FormatDisplayDate(r.Data),
			r.Contraparte,
			r.Descricao,
			normalize.ResolveInvoiceQuantity(r.Item),
			r.Valor,
		})
	}
	wb.addDetail("Notas", []string{"Nota", "Data", contraparteLabel, "Descrição", "Quantidade", "Valor (R$)"}, detail)

	porContraparte := make([][]any, 0, len(summary.PorContraparte))
	for _, t := range summary.PorContraparte {
		porContraparte = append(porContraparte, []any{t.Nome, t.Animais, t.Valor})
	}
	wb.addDetail("Por "+contraparteLabel, []string{contraparteLabel, "Animais", "Valor (R$)"}, porContraparte)

	return wb.bytes()
}
