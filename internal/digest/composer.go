package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rebanho/backend/internal/chart"
	"rebanho/backend/internal/normalize"
	"rebanho/backend/internal/report"
)

// Digest is the condensed WhatsApp payload: one plain-text message plus an
// optional combined chart image.
type Digest struct {
	Text  string
	Chart []byte
}

// Composer builds the digest from the same fetch and aggregation code the
// workbook builders use, so the numbers in the WhatsApp message always match
// the emailed spreadsheets.
type Composer struct {
	reports *report.Builder
	charts  chart.Renderer
	log     *zap.Logger
	now     func() time.Time
}

func NewComposer(reports *report.Builder, charts chart.Renderer, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{reports: reports, charts: charts, log: log, now: time.Now}
}

// WithNow overrides the clock, for tests of "today"-relative sections.
func (c *Composer) WithNow(now func() time.Time) *Composer {
	c.now = now
	return c
}

type section struct {
	title string
	emoji string
	lines []string
}

// chartPoint is one bar of the combined summary chart. Currency is zero for
// pure-count datasets.
type chartPoint struct {
	label    string
	count    float64
	currency float64
}

// Compose builds the digest for the requested report types over the period.
// Sections follow the catalog order. A report type whose data cannot be
// fetched is logged and skipped; it never aborts the other sections.
func (c *Composer) Compose(ctx context.Context, tags []report.Tag, period normalize.Period) Digest {
	var sections []section
	var points []chartPoint

	for _, tag := range report.OrderTags(tags) {
		sec, pts, err := c.section(ctx, tag, period)
		if err != nil {
			c.log.Warn("digest section failed",
				zap.String("report", string(tag)),
				zap.Error(err))
			continue
		}
		if sec != nil {
			sections = append(sections, *sec)
		}
		points = append(points, pts...)
	}

	if len(sections) == 0 {
		return Digest{Text: c.emptyText(tags, period)}
	}

	var sb strings.Builder
	sb.WriteString("📋 *Resumo dos Relatórios*\n")
	sb.WriteString("📅 Período: " + normalize.FormatDisplayDate(period.StartDate) +
		" a " + normalize.FormatDisplayDate(period.EndDate) + "\n")
	for _, sec := range sections {
		sb.WriteString("\n" + sec.emoji + " *" + sec.title + "*\n")
		for _, line := range sec.lines {
			sb.WriteString(line + "\n")
		}
	}
	return Digest{Text: strings.TrimRight(sb.String(), "\n"), Chart: c.combinedChart(points)}
}

func (c *Composer) emptyText(tags []report.Tag, period normalize.Period) string {
	var sb strings.Builder
	sb.WriteString("📋 *Resumo dos Relatórios*\n")
	sb.WriteString("📅 Período: " + normalize.FormatDisplayDate(period.StartDate) +
		" a " + normalize.FormatDisplayDate(period.EndDate) + "\n\n")
	sb.WriteString("Nenhum dado encontrado para os relatórios solicitados:\n")
	for _, tag := range report.OrderTags(tags) {
		entry, ok := report.Lookup(tag)
		if !ok {
			continue
		}
		sb.WriteString("- " + entry.Title + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Composer) combinedChart(points []chartPoint) []byte {
	var labels []string
	var counts, currency []float64
	for _, p := range points {
		if p.count == 0 && p.currency == 0 {
			continue
		}
		labels = append(labels, p.label)
		counts = append(counts, p.count)
		currency = append(currency, p.currency)
	}
	if len(labels) == 0 {
		return nil
	}
	return c.charts.DualAxis("Resumo do Período", labels, counts, currency)
}

func (c *Composer) section(ctx context.Context, tag report.Tag, period normalize.Period) (*section, []chartPoint, error) {
	entry, ok := report.Lookup(tag)
	if !ok {
		return nil, nil, fmt.Errorf("tipo de relatório desconhecido: %s", tag)
	}

	switch tag {
	case report.TagNFEntrada, report.TagNFSaida:
		tipo := "entrada"
		label := "NF Entrada"
		if tag == report.TagNFSaida {
			tipo = "saida"
			label = "NF Saída"
		}
		rows, err := c.reports.FetchNF(ctx, period, tipo)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeNF(rows)
		lines := []string{
			fmt.Sprintf("Notas: %d", s.TotalNotas),
			fmt.Sprintf("Animais: %d", s.TotalAnimais),
			"Valor: " + report.FormatBRL(s.ValorTotal),
		}
		if len(s.PorContraparte) > 0 {
			top := s.PorContraparte[0]
			lines = append(lines, fmt.Sprintf("Maior volume: %s (%d animais)", top.Nome, top.Animais))
		}
		return &section{title: entry.Title, emoji: "🧾", lines: lines},
			[]chartPoint{{label: label, count: float64(s.TotalAnimais), currency: s.ValorTotal}}, nil

	case report.TagNascimentos:
		rows, err := c.reports.FetchNascimentos(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeBirths(rows)
		lines := []string{
			fmt.Sprintf("Total: %d", s.Total),
			fmt.Sprintf("Machos: %d", s.Machos),
			fmt.Sprintf("Fêmeas: %d", s.Femeas),
		}
		if len(s.PorPiquete) > 0 {
			top := s.PorPiquete[0]
			lines = append(lines, fmt.Sprintf("Maior concentração: %s (%d)", top.Local, top.Total))
		}
		return &section{title: entry.Title, emoji: "🐄", lines: lines}, []chartPoint{
			{label: "Nascimentos M", count: float64(s.Machos)},
			{label: "Nascimentos F", count: float64(s.Femeas)},
		}, nil

	case report.TagMortes:
		rows, err := c.reports.FetchMortes(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeDeaths(rows)
		lines := []string{fmt.Sprintf("Total: %d", s.Total)}
		if len(s.PorCausa) > 0 {
			top := s.PorCausa[0]
			lines = append(lines, fmt.Sprintf("Principal causa: %s (%d)", top.Causa, top.Total))
		}
		return &section{title: entry.Title, emoji: "💀", lines: lines},
			[]chartPoint{{label: "Mortes", count: float64(s.Total)}}, nil

	case report.TagReceptorasChegadas:
		rows, err := c.reports.FetchReceptorasChegadas(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		total := 0
		for _, r := range rows {
			total += normalize.ResolveInvoiceQuantity(r.Item)
		}
		lines := []string{
			fmt.Sprintf("Lotes recebidos: %d", len(rows)),
			fmt.Sprintf("Receptoras: %d", total),
		}
		return &section{title: entry.Title, emoji: "🚚", lines: lines},
			[]chartPoint{{label: "Recept. Chegadas", count: float64(total)}}, nil

	case report.TagReceptorasFaltamParir:
		pendentes, err := c.reports.FetchPendingBirths(ctx)
		if err != nil || len(pendentes) == 0 {
			return nil, nil, err
		}
		situacoes := make([]string, 0, len(pendentes))
		for _, p := range pendentes {
			situacoes = append(situacoes, p.Situacao)
		}
		atrasadas, proximas := report.CountSituations(situacoes)
		lines := []string{
			fmt.Sprintf("Partos pendentes: %d", len(pendentes)),
			fmt.Sprintf("Atrasados: %d", atrasadas),
			fmt.Sprintf("Próximos 30 dias: %d", proximas),
		}
		return &section{title: entry.Title, emoji: "🤰", lines: lines},
			[]chartPoint{{label: "Faltam Parir", count: float64(len(pendentes))}}, nil

	case report.TagReceptorasFaltamDG:
		pendentes, err := c.reports.FetchPendingDG(ctx)
		if err != nil || len(pendentes) == 0 {
			return nil, nil, err
		}
		situacoes := make([]string, 0, len(pendentes))
		for _, p := range pendentes {
			situacoes = append(situacoes, p.Situacao)
		}
		atrasadas, proximas := report.CountSituations(situacoes)
		lines := []string{
			fmt.Sprintf("Diagnósticos pendentes: %d", len(pendentes)),
			fmt.Sprintf("Atrasados: %d", atrasadas),
			fmt.Sprintf("Próximos 7 dias: %d", proximas),
		}
		return &section{title: entry.Title, emoji: "🔬", lines: lines},
			[]chartPoint{{label: "Faltam DG", count: float64(len(pendentes))}}, nil

	case report.TagFemeasIA:
		rows, err := c.reports.FetchFemeasIA(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		porTouro := report.CountByBull(rows)
		lines := []string{
			fmt.Sprintf("Inseminações: %d", len(rows)),
			fmt.Sprintf("Touros utilizados: %d", len(porTouro)),
		}
		return &section{title: entry.Title, emoji: "💉", lines: lines}, nil, nil

	case report.TagOcupacaoPiquetes:
		rows, err := c.reports.FetchOcupacao(ctx)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		totais := report.SummarizeOccupancy(rows)
		lines := []string{
			fmt.Sprintf("Animais ativos: %d", len(rows)),
			fmt.Sprintf("Localizações: %d", len(totais)),
		}
		if len(totais) > 0 {
			lines = append(lines, fmt.Sprintf("Mais ocupado: %s (%d)", totais[0].Local, totais[0].Total))
		}
		return &section{title: entry.Title, emoji: "🌾", lines: lines}, nil, nil

	case report.TagPesagens, report.TagResumoPesagens:
		rows, err := c.reports.FetchPesagens(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeWeighings(rows)
		lines := []string{
			fmt.Sprintf("Pesagens: %d", s.Total),
			fmt.Sprintf("Peso médio: %.1f kg", s.PesoMedio),
			fmt.Sprintf("Mínimo/Máximo: %.1f / %.1f kg", s.PesoMin, s.PesoMax),
		}
		return &section{title: entry.Title, emoji: "⚖️", lines: lines}, nil, nil

	case report.TagColetasFIV:
		rows, err := c.reports.FetchColetasFIV(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeFIV(rows)
		lines := []string{
			fmt.Sprintf("Coletas: %d", s.Coletas),
			fmt.Sprintf("Oócitos viáveis: %d de %d (%s)", s.OocitosViaveis, s.OocitosTotais,
				report.FormatRate(s.OocitosViaveis, s.OocitosTotais)),
			fmt.Sprintf("Embriões: %d", s.Embrioes),
		}
		return &section{title: entry.Title, emoji: "🧫", lines: lines}, nil, nil

	case report.TagTransferenciasEmbrioes:
		rows, err := c.reports.FetchTransferencias(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeTE(rows)
		diagnosticadas := s.Prenhes + s.Vazias
		lines := []string{
			fmt.Sprintf("Transferências: %d", s.Total),
			fmt.Sprintf("Prenhes: %d (%s)", s.Prenhes, report.FormatRate(s.Prenhes, diagnosticadas)),
			fmt.Sprintf("Aguardando diagnóstico: %d", s.Aguardando),
		}
		return &section{title: entry.Title, emoji: "🧬", lines: lines}, nil, nil

	case report.TagGestacoes:
		gestacoes, err := c.reports.FetchGestacoesAbertas(ctx)
		if err != nil || len(gestacoes) == 0 {
			return nil, nil, err
		}
		lines := []string{fmt.Sprintf("Gestações em andamento: %d", len(gestacoes))}
		return &section{title: entry.Title, emoji: "🐮", lines: lines}, nil, nil

	case report.TagExamesAndrologicos:
		rows, err := c.reports.FetchExames(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeExams(rows)
		lines := []string{
			fmt.Sprintf("Exames: %d", s.Total),
			fmt.Sprintf("Aprovados: %d (%s)", s.Aprovados, report.FormatRate(s.Aprovados, s.Total)),
		}
		return &section{title: entry.Title, emoji: "🩺", lines: lines}, nil, nil

	case report.TagMovimentacoes:
		rows, err := c.reports.FetchMovimentacoes(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeMovimentacoes(rows)
		lines := []string{
			"Entradas: " + report.FormatBRL(s.Entradas),
			"Saídas: " + report.FormatBRL(s.Saidas),
			"Saldo: " + report.FormatBRL(s.Saldo),
		}
		return &section{title: entry.Title, emoji: "💰", lines: lines},
			[]chartPoint{{label: "Financeiro", count: float64(len(rows)), currency: s.Saldo}}, nil

	case report.TagEstoqueSemen:
		rows, err := c.reports.FetchEstoqueSemen(ctx)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		totalDoses, baixoEstoque := report.SummarizeSemen(rows)
		lines := []string{
			fmt.Sprintf("Touros em estoque: %d", len(rows)),
			fmt.Sprintf("Doses totais: %d", totalDoses),
			fmt.Sprintf("Estoque baixo: %d", baixoEstoque),
		}
		return &section{title: entry.Title, emoji: "🧊", lines: lines}, nil, nil

	case report.TagVacinacoes:
		rows, err := c.reports.FetchVacinacoes(ctx, period)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		s := report.SummarizeVaccinations(rows, c.now())
		lines := []string{
			fmt.Sprintf("Aplicações: %d", s.Aplicacoes),
			fmt.Sprintf("Vacinas distintas: %d", s.VacinasDistintas),
			fmt.Sprintf("Reforços nos próximos 30 dias: %d", s.ReforcosProximos),
		}
		return &section{title: entry.Title, emoji: "💊", lines: lines}, nil, nil

	case report.TagGenealogia:
		rows, err := c.reports.FetchGenealogia(ctx)
		if err != nil || len(rows) == 0 {
			return nil, nil, err
		}
		lines := []string{fmt.Sprintf("Animais ativos com linhagem: %d", len(rows))}
		return &section{title: entry.Title, emoji: "🌳", lines: lines}, nil, nil

	case report.TagCalendarioReprodutivo:
		eventos, err := c.reports.FetchCalendario(ctx, period)
		if err != nil || len(eventos) == 0 {
			return nil, nil, err
		}
		lines := []string{fmt.Sprintf("Eventos previstos no período: %d", len(eventos))}
		return &section{title: entry.Title, emoji: "🗓️", lines: lines}, nil, nil
	}

	return nil, nil, nil
}
