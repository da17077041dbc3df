package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebanho/backend/internal/chart"
	"rebanho/backend/internal/database/databasetest"
	"rebanho/backend/internal/digest"
	"rebanho/backend/internal/messaging"
	"rebanho/backend/internal/report"
)

type emailCall struct {
	to          string
	subject     string
	body        string
	attachments []messaging.Attachment
}

type fakeEmail struct {
	err   error
	calls []emailCall
}

func (f *fakeEmail) Send(to, subject, body string, attachments []messaging.Attachment) error {
	f.calls = append(f.calls, emailCall{to: to, subject: subject, body: body, attachments: attachments})
	return f.err
}

type fakeWhatsApp struct {
	media     bool
	textErr   error
	mediaErr  func(filename string) error
	texts     []string
	mediaSent []string
}

func (f *fakeWhatsApp) SendText(_ context.Context, _, text string) error {
	if f.textErr != nil {
		return f.textErr
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeWhatsApp) SendMedia(_ context.Context, _, filename, _, _ string, _ []byte) error {
	if f.mediaErr != nil {
		if err := f.mediaErr(filename); err != nil {
			return err
		}
	}
	f.mediaSent = append(f.mediaSent, filename)
	return nil
}

func (f *fakeWhatsApp) SupportsMedia() bool { return f.media }

// fakeRenderer keeps digest composition deterministic without drawing PNGs.
type fakeRenderer struct {
	noDualAxis bool
}

func (fakeRenderer) Pie(string, []chart.Value) []byte              { return []byte("png") }
func (fakeRenderer) Bar(string, []chart.Value) []byte              { return []byte("png") }
func (fakeRenderer) Line(string, []chart.TimeSeries) []byte        { return []byte("png") }
func (fakeRenderer) Scatter(_, _, _ string, _, _ []float64) []byte { return []byte("png") }
func (fakeRenderer) Histogram(string, []float64, int) []byte       { return []byte("png") }

func (f fakeRenderer) DualAxis(string, []string, []float64, []float64) []byte {
	if f.noDualAxis {
		return nil
	}
	return []byte("png")
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func intPtr(v int) *int { return &v }

// recipientRow matches the destinatarios_relatorios column order.
func recipientRow(id int64, nome, email, whatsapp string, recEmail, recWhats, recorrente bool, intervalo *int) []any {
	var iv any
	if intervalo != nil {
		iv = *intervalo
	}
	return []any{id, nome, email, whatsapp, recEmail, recWhats, recorrente, iv, nil, nil, true}
}

func birthRows() databasetest.Result {
	return databasetest.Result{Match: "FROM nascimentos", Rows: [][]any{
		{day("2024-03-05"), "BEZ 1", "M", "PIQUETE 3", "VACA 1", "TOURO A"},
		{day("2024-03-10"), "BEZ 2", "F", "", "VACA 2", "TOURO B"},
	}}
}

func newOrchestrator(db *databasetest.Querier, mailer messaging.EmailSender, whatsapp messaging.WhatsAppSender) *Orchestrator {
	now := func() time.Time { return day("2024-04-01") }
	builder := report.NewBuilder(db, nil, fakeRenderer{}, nil).WithNow(now)
	composer := digest.NewComposer(builder, fakeRenderer{}, nil).WithNow(now)
	return NewOrchestrator(NewRecipientRepo(db), builder, composer, mailer, whatsapp, nil).WithNow(now)
}

func request(ids []int64, relatorios ...string) Request {
	req := Request{Destinatarios: ids, Relatorios: relatorios}
	req.Period.StartDate = "2024-03-01"
	req.Period.EndDate = "2024-03-31"
	return req
}

func TestRunValidation(t *testing.T) {
	orch := newOrchestrator(&databasetest.Querier{}, &fakeEmail{}, &fakeWhatsApp{})

	var verr *ValidationError

	_, err := orch.Run(context.Background(), request(nil, "nascimentos"))
	require.ErrorAs(t, err, &verr)

	_, err = orch.Run(context.Background(), request([]int64{1}))
	require.ErrorAs(t, err, &verr)

	req := request([]int64{1}, "nascimentos")
	req.Period.StartDate = nil
	_, err = orch.Run(context.Background(), req)
	require.ErrorAs(t, err, &verr)

	_, err = orch.Run(context.Background(), request([]int64{1}, "relatorio_que_nao_existe"))
	require.ErrorAs(t, err, &verr)

	// No active recipient resolves from the registry.
	_, err = orch.Run(context.Background(), request([]int64{99}, "nascimentos"))
	require.ErrorAs(t, err, &verr)
}

func TestRunWhatsAppOnlyRecipientSkipsEmail(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "Maria", "", "+5511999990000", false, true, false, nil),
		}},
	}}
	mailer := &fakeEmail{}
	whats := &fakeWhatsApp{media: false}
	orch := newOrchestrator(db, mailer, whats)

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	assert.Equal(t, OutcomeNotSent, resp.Results[0].Email)
	assert.Equal(t, "enviado (sem gráfico)", resp.Results[0].WhatsApp)
	assert.Empty(t, mailer.calls)
	require.Len(t, whats.texts, 1)
	assert.Contains(t, whats.texts[0], "Total: 2")

	assert.Equal(t, 0, resp.Stats.EmailEnviados)
	assert.Equal(t, 0, resp.Stats.EmailFalhas)
	assert.Equal(t, 1, resp.Stats.WhatsEnviados)
}

func TestRunWithoutMailerConfigured(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "João", "joao@fazenda.com", "", true, false, false, nil),
		}},
	}}
	orch := newOrchestrator(db, nil, &fakeWhatsApp{})

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	assert.Equal(t, "erro: transporte SMTP não configurado", resp.Results[0].Email)
	assert.Equal(t, OutcomeNotSent, resp.Results[0].WhatsApp)
	assert.Equal(t, 1, resp.Stats.EmailFalhas)
}

func TestRunIsolatesReportFailures(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		{Match: "FROM nascimentos", Err: errors.New("coluna inexistente")},
		{Match: "FROM mortes", Rows: [][]any{
			{day("2024-03-08"), "VACA 9", "Pneumonia", ""},
		}},
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "João", "joao@fazenda.com", "", true, false, false, nil),
		}},
	}}
	mailer := &fakeEmail{}
	orch := newOrchestrator(db, mailer, nil)

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos", "mortes"))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Stats.RelatoriosOK)
	assert.Equal(t, 1, resp.Stats.RelatoriosFalha)

	// The surviving workbook still goes out.
	assert.Equal(t, OutcomeSent, resp.Results[0].Email)
	require.Len(t, mailer.calls, 1)
	require.Len(t, mailer.calls[0].attachments, 1)
	assert.Equal(t, "mortes-01-03-2024-31-03-2024.xlsx", mailer.calls[0].attachments[0].Filename)
}

func TestRunEmailBodyLinksDashboard(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "João", "joao@fazenda.com", "", true, false, false, nil),
		}},
	}}
	mailer := &fakeEmail{}
	orch := newOrchestrator(db, mailer, nil).WithBaseURL("https://painel.fazenda.com/")

	_, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)

	require.Len(t, mailer.calls, 1)
	assert.Contains(t, mailer.calls[0].body, "Olá João")
	assert.Contains(t, mailer.calls[0].body, "Acesse o painel: https://painel.fazenda.com")
	assert.NotContains(t, mailer.calls[0].body, "painel.fazenda.com/\n")
}

func TestRunEmailFailureLeavesWhatsAppIndependent(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "Maria", "maria@fazenda.com", "+5511999990000", true, true, false, nil),
		}},
	}}
	mailer := &fakeEmail{err: errors.New("conexão recusada")}
	whats := &fakeWhatsApp{media: false}
	orch := newOrchestrator(db, mailer, whats)

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)

	assert.Equal(t, "erro: conexão recusada", resp.Results[0].Email)
	assert.Equal(t, "enviado (sem gráfico)", resp.Results[0].WhatsApp)
	assert.Equal(t, 1, resp.Stats.EmailFalhas)
	assert.Equal(t, 1, resp.Stats.WhatsEnviados)
}

func TestRunMediaProviderSendsChartAndFiles(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "Maria", "", "+5511999990000", false, true, false, nil),
		}},
	}}
	whats := &fakeWhatsApp{media: true}
	orch := newOrchestrator(db, nil, whats)

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSent, resp.Results[0].WhatsApp)
	require.Len(t, whats.mediaSent, 2)
	assert.Equal(t, "resumo.png", whats.mediaSent[0])
	assert.Equal(t, "nascimentos-01-03-2024-31-03-2024.xlsx", whats.mediaSent[1])
}

func TestRunMediaProviderWithoutChartStillSendsFiles(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "Maria", "", "+5511999990000", false, true, false, nil),
		}},
	}}
	now := func() time.Time { return day("2024-04-01") }
	renderer := fakeRenderer{noDualAxis: true}
	builder := report.NewBuilder(db, nil, renderer, nil).WithNow(now)
	composer := digest.NewComposer(builder, renderer, nil).WithNow(now)
	whats := &fakeWhatsApp{media: true}
	orch := NewOrchestrator(NewRecipientRepo(db), builder, composer, nil, whats, nil).WithNow(now)

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)

	// No combined chart rendered: the digest goes out as plain text and the
	// workbooks still follow as media.
	assert.Equal(t, OutcomeSent, resp.Results[0].WhatsApp)
	require.Len(t, whats.texts, 1)
	assert.Contains(t, whats.texts[0], "*Nascimentos*")
	require.Len(t, whats.mediaSent, 1)
	assert.Equal(t, "nascimentos-01-03-2024-31-03-2024.xlsx", whats.mediaSent[0])
}

func TestRunMediaProviderPartialFileFailure(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "Maria", "", "+5511999990000", false, true, false, nil),
		}},
	}}
	whats := &fakeWhatsApp{media: true, mediaErr: func(filename string) error {
		if strings.HasSuffix(filename, ".xlsx") {
			return errors.New("arquivo grande demais")
		}
		return nil
	}}
	orch := newOrchestrator(db, nil, whats)

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)

	assert.Equal(t, "enviado (alguns arquivos falharam)", resp.Results[0].WhatsApp)
	assert.Equal(t, 1, resp.Stats.WhatsEnviados)
}

func TestRunStampsRecurringScheduleOnSuccess(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "João", "joao@fazenda.com", "", true, false, true, intPtr(3)),
			recipientRow(2, "Maria", "maria@fazenda.com", "", true, false, false, nil),
		}},
	}}
	mailer := &fakeEmail{}
	orch := newOrchestrator(db, mailer, nil)

	_, err := orch.Run(context.Background(), request([]int64{1, 2}, "nascimentos"))
	require.NoError(t, err)

	// Only the recurring recipient is stamped.
	require.Len(t, db.Execs, 1)
	exec := db.Execs[0]
	assert.Contains(t, exec.SQL, "UPDATE destinatarios_relatorios")
	require.Len(t, exec.Args, 4)
	assert.Equal(t, day("2024-04-01"), exec.Args[0])
	assert.Equal(t, day("2024-04-04"), exec.Args[1])
	assert.Equal(t, "nascimentos", exec.Args[2])
	assert.Equal(t, int64(1), exec.Args[3])
}

func TestRunSkipsStampWhenAllChannelsFail(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "FROM destinatarios_relatorios", Rows: [][]any{
			recipientRow(1, "João", "joao@fazenda.com", "", true, false, true, intPtr(3)),
		}},
	}}
	mailer := &fakeEmail{err: errors.New("caixa cheia")}
	orch := newOrchestrator(db, mailer, nil)

	resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
	require.NoError(t, err)

	assert.Equal(t, "erro: caixa cheia", resp.Results[0].Email)
	assert.Empty(t, db.Execs)
}

func TestRunScheduledResolvesDueRecipients(t *testing.T) {
	db := &databasetest.Querier{Results: []databasetest.Result{
		birthRows(),
		{Match: "proximo_envio <=", Rows: [][]any{
			recipientRow(1, "João", "joao@fazenda.com", "", true, false, true, intPtr(7)),
		}},
	}}
	mailer := &fakeEmail{}
	orch := newOrchestrator(db, mailer, nil)

	req := request(nil, "nascimentos")
	req.Agendado = true
	resp, err := orch.Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "João", resp.Results[0].Destinatario)
	assert.Equal(t, OutcomeSent, resp.Results[0].Email)
	require.Len(t, db.Execs, 1)
}

func TestRunIsRepeatable(t *testing.T) {
	newDB := func() *databasetest.Querier {
		return &databasetest.Querier{Results: []databasetest.Result{
			birthRows(),
			{Match: "FROM destinatarios_relatorios", Rows: [][]any{
				recipientRow(1, "Maria", "", "+5511999990000", false, true, false, nil),
			}},
		}}
	}
	run := func() *Response {
		orch := newOrchestrator(newDB(), nil, &fakeWhatsApp{media: false})
		resp, err := orch.Run(context.Background(), request([]int64{1}, "nascimentos"))
		require.NoError(t, err)
		return resp
	}

	first := run()
	second := run()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Stats, second.Stats)
}
