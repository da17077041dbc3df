package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebanho/backend/internal/normalize"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func intPtr(n int) *int { return &n }

func TestSummarizeNF(t *testing.T) {
	rows := []NFRow{
		{Numero: "101", Contraparte: "Fazenda Boa Vista", Valor: 10000,
			Item: normalize.InvoiceItem{Quantidade: intPtr(5)}},
		{Numero: "101", Contraparte: "Fazenda Boa Vista", Valor: 2000,
			Item: normalize.InvoiceItem{Payload: map[string]any{"quantidadeAnimais": 3.0}}},
		{Numero: "202", Contraparte: "", Valor: 500,
			Item: normalize.InvoiceItem{Payload: map[string]any{"qtd": "2"}}},
	}
	s := SummarizeNF(rows)

	assert.Equal(t, 2, s.TotalNotas, "repeated invoice numbers count once")
	assert.Equal(t, 10, s.TotalAnimais, "quantities resolve through the fallback chain")
	assert.InDelta(t, 12500, s.ValorTotal, 0.001)
	require.Len(t, s.PorContraparte, 2)
	assert.Equal(t, "Fazenda Boa Vista", s.PorContraparte[0].Nome)
	assert.Equal(t, 8, s.PorContraparte[0].Animais)
	assert.Equal(t, "Não informado", s.PorContraparte[1].Nome)
}

func TestSummarizeBirths(t *testing.T) {
	rows := []BirthRow{
		{Sexo: "M", Localizacao: "piquete 3"},
		{Sexo: "Macho", Localizacao: "PROJETO 3"},
		{Sexo: "F", Localizacao: "cabanha"},
	}
	s := SummarizeBirths(rows)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Machos)
	assert.Equal(t, 1, s.Femeas)
	// PIQUETE 3 and PROJETO 3 fold into the same bucket.
	require.Len(t, s.PorPiquete, 2)
	assert.Equal(t, LocalTotal{Local: "PROJETO 3", Total: 2}, s.PorPiquete[0])
	assert.Equal(t, LocalTotal{Local: "CABANHA", Total: 1}, s.PorPiquete[1])
}

func TestSummarizeDeaths(t *testing.T) {
	rows := []DeathRow{
		{Causa: "Tristeza parasitária"},
		{Causa: "Tristeza parasitária"},
		{Causa: ""},
	}
	s := SummarizeDeaths(rows)
	assert.Equal(t, 3, s.Total)
	require.Len(t, s.PorCausa, 2)
	assert.Equal(t, CausaTotal{Causa: "Tristeza parasitária", Total: 2}, s.PorCausa[0])
	assert.Equal(t, CausaTotal{Causa: "Não informada", Total: 1}, s.PorCausa[1])
}

func TestSummarizeWeighings(t *testing.T) {
	rows := []WeighingRow{
		{Sexo: "M", Localizacao: "piquete 1", Peso: 300},
		{Sexo: "M", Localizacao: "PIQUETE 1", Peso: 400},
		{Sexo: "F", Localizacao: "lote 2", Peso: 260},
	}
	s := SummarizeWeighings(rows)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Machos)
	assert.Equal(t, 1, s.Femeas)
	assert.InDelta(t, 260, s.PesoMin, 0.001)
	assert.InDelta(t, 400, s.PesoMax, 0.001)
	assert.InDelta(t, 320, s.PesoMedio, 0.001)
	require.Len(t, s.PorPiquete, 2)
	assert.Equal(t, "PROJETO 1", s.PorPiquete[0].Local)
	assert.Equal(t, 2, s.PorPiquete[0].Cabecas)
	assert.InDelta(t, 350, s.PorPiquete[0].PesoMedio, 0.001)
}

func TestSummarizeWeighingsEmpty(t *testing.T) {
	s := SummarizeWeighings(nil)
	assert.Equal(t, 0, s.Total)
	assert.Empty(t, s.PorPiquete)
}

func TestDailyAverages(t *testing.T) {
	rows := []WeighingRow{
		{Data: day("2024-01-01"), Sexo: "M", Peso: 300},
		{Data: day("2024-01-01"), Sexo: "F", Peso: 200},
		{Data: day("2024-01-02"), Sexo: "M", Peso: 310},
	}

	times, values := DailyAverages(rows, nil)
	require.Len(t, times, 2)
	assert.True(t, times[0].Before(times[1]))
	assert.InDelta(t, 250, values[0], 0.001)
	assert.InDelta(t, 310, values[1], 0.001)

	_, males := DailyAverages(rows, func(r WeighingRow) bool { return isMale(r.Sexo) })
	assert.InDelta(t, 300, males[0], 0.001)
}

func TestSummarizeOccupancy(t *testing.T) {
	rows := []OccupancyRow{
		{Identificacao: "A1", Localizacao: "piquete 2"},
		{Identificacao: "A2", Localizacao: "PROJETO 2"},
		{Identificacao: "A3", Localizacao: ""},
	}
	totais := SummarizeOccupancy(rows)
	require.Len(t, totais, 2)
	assert.Equal(t, LocalTotal{Local: "PROJETO 2", Total: 2}, totais[0])
	assert.Equal(t, LocalTotal{Local: "SEM LOCALIZAÇÃO", Total: 1}, totais[1])
}

func TestCountByBull(t *testing.T) {
	rows := []FemeaIARow{
		{Touro: "Touro A"}, {Touro: "Touro A"}, {Touro: ""},
	}
	porTouro := CountByBull(rows)
	assert.Equal(t, 2, porTouro["Touro A"])
	assert.Equal(t, 1, porTouro["Não informado"])
}

func TestSummarizeFIV(t *testing.T) {
	rows := []FIVRow{
		{OocitosViaveis: 10, OocitosTotais: 15, Embrioes: 6},
		{OocitosViaveis: 5, OocitosTotais: 10, Embrioes: 2},
	}
	s := SummarizeFIV(rows)
	assert.Equal(t, 2, s.Coletas)
	assert.Equal(t, 15, s.OocitosViaveis)
	assert.Equal(t, 25, s.OocitosTotais)
	assert.Equal(t, 8, s.Embrioes)
}

func TestSummarizeTE(t *testing.T) {
	diag := day("2024-02-01")
	rows := []TERow{
		{DataDiagnostico: &diag, Resultado: "Prenhe"},
		{DataDiagnostico: &diag, Resultado: "Vazia"},
		{},
	}
	s := SummarizeTE(rows)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Prenhes)
	assert.Equal(t, 1, s.Vazias)
	assert.Equal(t, 1, s.Aguardando)
}

func TestSummarizeSemen(t *testing.T) {
	rows := []SemenRow{
		{Touro: "A", Doses: 50},
		{Touro: "B", Doses: 3},
	}
	total, baixo := SummarizeSemen(rows)
	assert.Equal(t, 53, total)
	assert.Equal(t, 1, baixo, "fewer than 10 doses flags low stock")
}

func TestCountSituations(t *testing.T) {
	atrasadas, proximas := CountSituations([]string{"Atrasado", "Próximo", "No prazo", "Atrasado"})
	assert.Equal(t, 2, atrasadas)
	assert.Equal(t, 1, proximas)
}

func TestBuildReproductiveCalendar(t *testing.T) {
	period := normalize.Period{StartDate: "2024-10-01", EndDate: "2024-10-31"}

	gestacoes := []GestacaoRec{
		// Bred 2024-01-05, due 285 days later on 2024-10-16: inside period.
		{Receptora: "R1", DataCobertura: day("2024-01-05")},
		// Due in September: outside.
		{Receptora: "R2", DataCobertura: day("2023-12-01")},
	}
	tes := []TERow{
		// Transferred 2024-10-01, DG expected +15 on 2024-10-16.
		{Receptora: "R3", Data: day("2024-10-01")},
		{Receptora: "R4", Data: day("2024-11-20")},
	}

	// R1 lands twice in October: dry-off at +276 and calving at +285.
	eventos := BuildReproductiveCalendar(gestacoes, tes, period)
	require.Len(t, eventos, 3)
	for _, e := range eventos {
		assert.True(t, !e.Data.Before(day("2024-10-01")) && !e.Data.After(day("2024-10-31")),
			"event %q on %s outside period", e.Tipo, e.Data)
	}
}
