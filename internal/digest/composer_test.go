package digest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebanho/backend/internal/chart"
	"rebanho/backend/internal/database/databasetest"
	"rebanho/backend/internal/normalize"
	"rebanho/backend/internal/report"
)

// stubRenderer returns a fixed payload so tests can tell a rendered chart
// from a skipped one.
type stubRenderer struct {
	dualAxisCalls int
}

func (s *stubRenderer) Pie(string, []chart.Value) []byte              { return []byte("png") }
func (s *stubRenderer) Bar(string, []chart.Value) []byte              { return []byte("png") }
func (s *stubRenderer) Line(string, []chart.TimeSeries) []byte        { return []byte("png") }
func (s *stubRenderer) Scatter(_, _, _ string, _, _ []float64) []byte { return []byte("png") }
func (s *stubRenderer) Histogram(string, []float64, int) []byte       { return []byte("png") }
func (s *stubRenderer) DualAxis(string, []string, []float64, []float64) []byte {
	s.dualAxisCalls++
	return []byte("dual-axis-png")
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newComposer(db *databasetest.Querier) (*Composer, *stubRenderer) {
	renderer := &stubRenderer{}
	builder := report.NewBuilder(db, nil, renderer, nil).
		WithNow(func() time.Time { return day("2024-04-01") })
	composer := NewComposer(builder, renderer, nil).
		WithNow(func() time.Time { return day("2024-04-01") })
	return composer, renderer
}

func TestComposeBirthsSection(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "FROM nascimentos", Rows: [][]any{
			{day("2024-03-05"), "BEZ 1", "M", "PIQUETE 3", "VACA 1", "TOURO A"},
			{day("2024-03-10"), "BEZ 2", "M", "PROJETO 3", "VACA 2", "TOURO A"},
			{day("2024-03-12"), "BEZ 3", "F", "", "VACA 3", "TOURO B"},
		}},
	}}
	composer, renderer := newComposer(db)

	period := normalize.Period{StartDate: "2024-03-01", EndDate: "2024-03-31"}
	d := composer.Compose(context.Background(), []report.Tag{report.TagNascimentos}, period)

	assert.Contains(t, d.Text, "📋 *Resumo dos Relatórios*")
	assert.Contains(t, d.Text, "Período: 01/03/2024 a 31/03/2024")
	assert.Contains(t, d.Text, "*Nascimentos*")
	assert.Contains(t, d.Text, "Total: 3")
	assert.Contains(t, d.Text, "Machos: 2")
	assert.Contains(t, d.Text, "Fêmeas: 1")
	assert.Contains(t, d.Text, "Maior concentração: PROJETO 3 (2)")

	require.Equal(t, 1, renderer.dualAxisCalls)
	assert.Equal(t, []byte("dual-axis-png"), d.Chart)
}

func TestComposeEmptyFallbackListsRequestedTypes(t *testing.T) {
	composer, renderer := newComposer(&databasetest.Querier{})

	period := normalize.Period{StartDate: "2024-03-01", EndDate: "2024-03-31"}
	d := composer.Compose(context.Background(), []report.Tag{report.TagNascimentos, report.TagMortes}, period)

	assert.Contains(t, d.Text, "Nenhum dado encontrado para os relatórios solicitados:")
	assert.Contains(t, d.Text, "- Nascimentos")
	assert.Contains(t, d.Text, "- Mortes")
	assert.Nil(t, d.Chart)
	assert.Zero(t, renderer.dualAxisCalls)
}

func TestComposeSkipsFailedSections(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "FROM nascimentos", Err: assert.AnError},
		{Match: "FROM mortes", Rows: [][]any{
			{day("2024-03-08"), "VACA 9", "Pneumonia", "PIQUETE 1"},
		}},
	}}
	composer, _ := newComposer(db)

	period := normalize.Period{StartDate: "2024-03-01", EndDate: "2024-03-31"}
	d := composer.Compose(context.Background(), []report.Tag{report.TagNascimentos, report.TagMortes}, period)

	assert.NotContains(t, d.Text, "*Nascimentos*")
	assert.Contains(t, d.Text, "*Mortes*")
	assert.Contains(t, d.Text, "Total: 1")
	assert.Contains(t, d.Text, "Principal causa: Pneumonia (1)")
}

func TestComposeSectionsFollowCatalogOrder(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "FROM nascimentos", Rows: [][]any{
			{day("2024-03-05"), "BEZ 1", "M", "", "", ""},
		}},
		{Match: "FROM mortes", Rows: [][]any{
			{day("2024-03-08"), "VACA 9", "Pneumonia", ""},
		}},
	}}
	composer, _ := newComposer(db)

	period := normalize.Period{StartDate: "2024-03-01", EndDate: "2024-03-31"}
	// Requested out of order; the digest still leads with births.
	d := composer.Compose(context.Background(), []report.Tag{report.TagMortes, report.TagNascimentos}, period)

	nasc := strings.Index(d.Text, "*Nascimentos*")
	mortes := strings.Index(d.Text, "*Mortes*")
	require.GreaterOrEqual(t, nasc, 0)
	require.GreaterOrEqual(t, mortes, 0)
	assert.Less(t, nasc, mortes)
}
