package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rebanho/backend/internal/digest"
	"rebanho/backend/internal/messaging"
	"rebanho/backend/internal/normalize"
	"rebanho/backend/internal/report"
)

// Channel outcome strings returned to the caller.
const (
	OutcomeSent    = "enviado"
	OutcomeNotSent = "não enviado"
)

// Request is one dispatch invocation as posted by the caller.
type Request struct {
	Destinatarios []int64  `json:"destinatarios"`
	Relatorios    []string `json:"relatorios"`
	Period        struct {
		StartDate any `json:"startDate"`
		EndDate   any `json:"endDate"`
	} `json:"period"`
	// Agendado resolves the recipient list from the recurring schedule
	// (proximo_envio <= now) instead of explicit ids.
	Agendado bool `json:"agendado"`
}

// Outcome is the per-recipient, per-channel result of one dispatch.
type Outcome struct {
	Destinatario string `json:"destinatario"`
	Email        string `json:"email"`
	WhatsApp     string `json:"whatsapp"`
}

// Stats aggregates channel counters across the whole invocation.
type Stats struct {
	EmailEnviados   int `json:"emailEnviados"`
	EmailFalhas     int `json:"emailFalhas"`
	WhatsEnviados   int `json:"whatsappEnviados"`
	WhatsFalhas     int `json:"whatsappFalhas"`
	RelatoriosOK    int `json:"relatoriosGerados"`
	RelatoriosFalha int `json:"relatoriosComFalha"`
}

// Response is what the HTTP layer serializes back to the caller.
type Response struct {
	ID      string
	Results []Outcome
	Summary string
	Chart   []byte
	Stats   Stats
}

// ValidationError marks structural input problems; the HTTP layer maps it to
// a 400 instead of a 500.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Orchestrator runs the dispatch pipeline: validate, resolve recipients,
// build report buffers, build the digest once, fan out per recipient and
// channel, then stamp recurring schedules.
type Orchestrator struct {
	recipients  *RecipientRepo
	reports     *report.Builder
	composer    *digest.Composer
	mailer      messaging.EmailSender
	whatsapp    messaging.WhatsAppSender
	log         *zap.Logger
	now         func() time.Time
	sendTimeout time.Duration
	baseURL     string
}

func NewOrchestrator(recipients *RecipientRepo, reports *report.Builder, composer *digest.Composer,
	mailer messaging.EmailSender, whatsapp messaging.WhatsAppSender, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		recipients:  recipients,
		reports:     reports,
		composer:    composer,
		mailer:      mailer,
		whatsapp:    whatsapp,
		log:         log,
		now:         time.Now,
		sendTimeout: 60 * time.Second,
	}
}

// WithNow overrides the clock, for schedule-stamp tests.
func (o *Orchestrator) WithNow(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithBaseURL sets the public dashboard address linked from email bodies.
func (o *Orchestrator) WithBaseURL(url string) *Orchestrator {
	o.baseURL = strings.TrimRight(strings.TrimSpace(url), "/")
	return o
}

// Run executes one dispatch. Validation problems return a *ValidationError;
// everything past validation isolates failures per report and per
// recipient-channel, recording them as outcomes instead of aborting.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	invocation := uuid.NewString()
	log := o.log.With(zap.String("dispatch_id", invocation))

	// VALIDATE
	if len(req.Destinatarios) == 0 && !req.Agendado {
		return nil, validationErrorf("nenhum destinatário informado")
	}
	if len(req.Relatorios) == 0 {
		return nil, validationErrorf("nenhum relatório informado")
	}
	period, ok := normalize.NormalizePeriod(req.Period.StartDate, req.Period.EndDate)
	if !ok {
		return nil, validationErrorf("período inválido: informe startDate e endDate")
	}

	tags := make([]report.Tag, 0, len(req.Relatorios))
	for _, raw := range req.Relatorios {
		tags = append(tags, report.Tag(raw))
	}
	tags = report.OrderTags(tags)
	if len(tags) == 0 {
		return nil, validationErrorf("nenhum relatório reconhecido")
	}

	// RESOLVE_RECIPIENTS
	var recipients []Recipient
	var err error
	if req.Agendado {
		recipients, err = o.recipients.ListDue(ctx, o.now())
	} else {
		recipients, err = o.recipients.GetActiveByIDs(ctx, req.Destinatarios)
	}
	if err != nil {
		return nil, fmt.Errorf("carregando destinatários: %w", err)
	}
	if len(recipients) == 0 {
		return nil, validationErrorf("nenhum destinatário ativo encontrado")
	}

	emailReady, whatsReady := 0, 0
	for _, r := range recipients {
		if r.EmailReady() {
			emailReady++
		}
		if r.WhatsAppReady() {
			whatsReady++
		}
	}
	if emailReady == 0 && whatsReady == 0 {
		return nil, validationErrorf("nenhum destinatário possui canal de envio habilitado")
	}
	log.Info("dispatch started",
		zap.Int("recipients", len(recipients)),
		zap.Int("email_ready", emailReady),
		zap.Int("whatsapp_ready", whatsReady),
		zap.Int("reports", len(tags)))

	// BUILD_REPORTS: one builder failure skips that report only.
	var generated []report.GeneratedReport
	stats := Stats{}
	for _, tag := range tags {
		rep, err := o.reports.Generate(ctx, tag, period)
		if err != nil {
			stats.RelatoriosFalha++
			log.Warn("report generation failed", zap.String("report", string(tag)), zap.Error(err))
			continue
		}
		generated = append(generated, rep)
		stats.RelatoriosOK++
	}

	// BUILD_DIGEST: once, reused verbatim for every WhatsApp recipient.
	dig := o.composer.Compose(ctx, tags, period)

	// SEND per recipient, per channel. Channels are independent.
	results := make([]Outcome, 0, len(recipients))
	succeeded := map[int64]bool{}
	for _, rec := range recipients {
		outcome := Outcome{
			Destinatario: rec.Nome,
			Email:        OutcomeNotSent,
			WhatsApp:     OutcomeNotSent,
		}

		if rec.EmailReady() {
			outcome.Email = o.sendEmail(ctx, rec, period, generated)
			if outcome.Email == OutcomeSent {
				stats.EmailEnviados++
				succeeded[rec.ID] = true
			} else {
				stats.EmailFalhas++
			}
		}

		if rec.WhatsAppReady() {
			outcome.WhatsApp = o.sendWhatsApp(ctx, rec, dig, generated)
			if isWhatsAppSuccess(outcome.WhatsApp) {
				stats.WhatsEnviados++
				succeeded[rec.ID] = true
			} else {
				stats.WhatsFalhas++
			}
		}

		results = append(results, outcome)
	}

	// PERSIST_SCHEDULE: only recipients with at least one successful channel.
	o.stampSchedules(ctx, recipients, succeeded, tags, log)

	log.Info("dispatch finished",
		zap.Int("email_sent", stats.EmailEnviados),
		zap.Int("email_failed", stats.EmailFalhas),
		zap.Int("whatsapp_sent", stats.WhatsEnviados),
		zap.Int("whatsapp_failed", stats.WhatsFalhas))

	return &Response{
		ID:      invocation,
		Results: results,
		Summary: dig.Text,
		Chart:   dig.Chart,
		Stats:   stats,
	}, nil
}

func (o *Orchestrator) sendEmail(ctx context.Context, rec Recipient, period normalize.Period, generated []report.GeneratedReport) string {
	if o.mailer == nil {
		return "erro: transporte SMTP não configurado"
	}

	attachments := make([]messaging.Attachment, 0, len(generated))
	for _, g := range generated {
		attachments = append(attachments, messaging.Attachment{
			Filename: g.Filename,
			Bytes:    g.Bytes,
			MIMEType: g.MIMEType,
		})
	}

	subject := "Relatórios do rebanho — " +
		normalize.FormatDisplayDate(period.StartDate) + " a " + normalize.FormatDisplayDate(period.EndDate)
	body := fmt.Sprintf("Olá %s,\n\nSeguem em anexo os relatórios do período de %s a %s.\n",
		rec.Nome, normalize.FormatDisplayDate(period.StartDate), normalize.FormatDisplayDate(period.EndDate))
	if o.baseURL != "" {
		body += "\nAcesse o painel: " + o.baseURL + "\n"
	}

	done := make(chan error, 1)
	go func() { done <- o.mailer.Send(rec.Email, subject, body, attachments) }()

	select {
	case err := <-done:
		if err != nil {
			return "erro: " + err.Error()
		}
		return OutcomeSent
	case <-time.After(o.sendTimeout):
		return "erro: tempo de envio esgotado"
	case <-ctx.Done():
		return "erro: " + ctx.Err().Error()
	}
}

func (o *Orchestrator) sendWhatsApp(ctx context.Context, rec Recipient, dig digest.Digest, generated []report.GeneratedReport) string {
	if o.whatsapp == nil {
		return "erro: provedor de WhatsApp não configurado"
	}

	sendCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	// Media-capable provider: digest first (chart captioned with the text,
	// or the text alone when no chart rendered), then each workbook as its
	// own media message. A per-file failure downgrades the outcome instead
	// of failing the channel.
	if o.whatsapp.SupportsMedia() {
		if dig.Chart != nil {
			if err := o.whatsapp.SendMedia(sendCtx, rec.WhatsApp, "resumo.png", dig.Text, "image/png", dig.Chart); err != nil {
				return "erro: " + err.Error()
			}
		} else if err := o.whatsapp.SendText(sendCtx, rec.WhatsApp, dig.Text); err != nil {
			return "erro: " + err.Error()
		}
		filesFailed := false
		for _, g := range generated {
			if err := o.whatsapp.SendMedia(sendCtx, rec.WhatsApp, g.Filename, "", g.MIMEType, g.Bytes); err != nil {
				filesFailed = true
				o.log.Warn("whatsapp attachment failed",
					zap.String("recipient", rec.Nome),
					zap.String("file", g.Filename),
					zap.Error(err))
			}
		}
		if filesFailed {
			return "enviado (alguns arquivos falharam)"
		}
		return OutcomeSent
	}

	// Text-only provider: digest text alone.
	if err := o.whatsapp.SendText(sendCtx, rec.WhatsApp, dig.Text); err != nil {
		return "erro: " + err.Error()
	}
	return "enviado (sem gráfico)"
}

func isWhatsAppSuccess(outcome string) bool {
	return outcome == OutcomeSent ||
		outcome == "enviado (sem gráfico)" ||
		outcome == "enviado (alguns arquivos falharam)"
}

func (o *Orchestrator) stampSchedules(ctx context.Context, recipients []Recipient, succeeded map[int64]bool, tags []report.Tag, log *zap.Logger) {
	now := o.now()
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, string(tag))
	}
	for _, rec := range recipients {
		if !rec.EnvioRecorrente || !succeeded[rec.ID] {
			continue
		}
		interval := 7
		if rec.IntervaloDias != nil && *rec.IntervaloDias > 0 {
			interval = *rec.IntervaloDias
		}
		if err := o.recipients.StampSchedule(ctx, rec.ID, now, interval, names); err != nil {
			log.Warn("schedule stamp failed", zap.Int64("recipient_id", rec.ID), zap.Error(err))
		}
	}
}
