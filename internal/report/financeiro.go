package report

import (
	"context"
	"sort"
	"time"

	"rebanho/backend/internal/normalize"
)

// MovimentacaoRow is one financial movement in the period.
type MovimentacaoRow struct {
	Data      time.Time
	Tipo      string
	Categoria string
	Descricao string
	Valor     float64
}

type MovimentacaoSummary struct {
	Entradas     float64
	Saidas       float64
	Saldo        float64
	PorCategoria []CategoriaTotal
}

type CategoriaTotal struct {
	Categoria string
	Valor     float64
}

func SummarizeMovimentacoes(rows []MovimentacaoRow) MovimentacaoSummary {
	s := MovimentacaoSummary{}
	porCategoria := map[string]float64{}
	for _, r := range rows {
		if r.Tipo == "entrada" {
			s.Entradas += r.Valor
		} else {
			s.Saidas += r.Valor
		}
		categoria := r.Categoria
		if categoria == "" {
			categoria = "Sem categoria"
		}
		porCategoria[categoria] += r.Valor
	}
	s.Saldo = s.Entradas - s.Saidas

	for categoria, valor := range porCategoria {
		s.PorCategoria = append(s.PorCategoria, CategoriaTotal{Categoria: categoria, Valor: valor})
	}
	sort.Slice(s.PorCategoria, func(i, j int) bool {
		if s.PorCategoria[i].Valor != s.PorCategoria[j].Valor {
			return s.PorCategoria[i].Valor > s.PorCategoria[j].Valor
		}
		return s.PorCategoria[i].Categoria < s.PorCategoria[j].Categoria
	})
	return s
}

func (b *Builder) FetchMovimentacoes(ctx context.Context, period normalize.Period) ([]MovimentacaoRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT data_movimentacao, COALESCE(tipo, ''), COALESCE(categoria, ''),
			COALESCE(descricao, ''), COALESCE(valor, 0)
		FROM movimentacoes_financeiras
		WHERE data_movimentacao BETWEEN $1 AND $2
		ORDER BY data_movimentacao
	`, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MovimentacaoRow
	for rows.Next() {
		var r MovimentacaoRow
		if err := rows.Scan(&r.Data, &r.Tipo, &r.Categoria, &r.Descricao, &r.Valor); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildMovimentacoes(ctx context.Context, period normalize.Period) ([]byte, error) {
	rows, err := b.FetchMovimentacoes(ctx, period)
	if err != nil {
		return nil, err
	}
	s := SummarizeMovimentacoes(rows)

	wb := newWorkbook()
	wb.addResumo("Movimentações Financeiras", period, b.now(), []indicator{
		{"Lançamentos", len(rows)},
		{"Entradas", FormatBRL(s.Entradas)},
		{"Saídas", FormatBRL(s.Saidas)},
		{"Saldo", FormatBRL(s.Saldo)},
	})

	detail := make([][]any, 0, len(rows))
	for _, r := range rows {
		detail = append(detail, []any{
			normalize.FormatDisplayDate(r.Data), r.Tipo, r.Categoria, r.Descricao, r.Valor,
		})
	}
	wb.addDetail("Movimentações", []string{"Data", "Tipo", "Categoria", "Descrição", "Valor (R$)"}, detail)

	porCategoria := make([][]any, 0, len(s.PorCategoria))
	for _, c := range s.PorCategoria {
		porCategoria = append(porCategoria, []any{c.Categoria, c.Valor})
	}
	wb.addDetail("Por Categoria", []string{"Categoria", "Valor (R$)"}, porCategoria)

	return wb.bytes()
}

// SemenRow is the current stock of one bull's doses.
type SemenRow struct {
	Touro   string
	Raca    string
	Doses   int
	Botijao string
	Caneca  string
}

const lowSemenStock = 10

// SummarizeSemen totals doses and counts bulls below the restock threshold.
func SummarizeSemen(rows []SemenRow) (totalDoses, baixoEstoque int) {
	for _, r := range rows {
		totalDoses += r.Doses
		if r.Doses < lowSemenStock {
			baixoEstoque++
		}
	}
	return totalDoses, baixoEstoque
}

func (b *Builder) FetchEstoqueSemen(ctx context.Context) ([]SemenRow, error) {
	rows, err := b.db.Query(ctx, `
		SELECT COALESCE(touro, ''), COALESCE(raca, ''), COALESCE(doses, 0),
			COALESCE(botijao, ''), COALESCE(caneca, '')
		FROM estoque_semen
		ORDER BY touro
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SemenRow
	for rows.Next() {
		var r SemenRow
		if err := rows.Scan(&r.Touro, &r.Raca, &r.Doses, &r.Botijao, &r.Caneca); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) buildEstoqueSemen(ctx context.Context) ([]byte, error) {
	estoque, err := b.FetchEstoqueSemen(ctx)
	if err != nil {
		return nil, err
	}
	totalDoses, baixoEstoque := SummarizeSemen(estoque)

	wb := newWorkbook()
	wb.addResumo("Estoque de Sêmen", normalize.Period{}, b.now(), []indicator{
		{"Touros em estoque", len(estoque)},
		{"Doses totais", totalDoses},
		{"Touros com estoque baixo", baixoEstoque},
	})

	detail := make([][]any, 0, len(estoque))
	for _, r := range estoque {
		alerta := ""
		if r.Doses < lowSemenStock {
			alerta = "Estoque baixo"
		}
		detail = append(detail, []any{r.Touro, r.Raca, r.Doses, r.Botijao, r.Caneca, alerta})
	}
	wb.addDetail("Estoque", []string{"Touro", "Raça", "Doses", "Botijão", "Caneca", "Alerta"}, detail)

	return wb.bytes()
}
