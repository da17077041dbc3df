package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"rebanho/backend/internal/database"
)

// Recipient is one entry of the report-recipient registry.
type Recipient struct {
	ID              int64      `json:"id"`
	Nome            string     `json:"nome"`
	Email           string     `json:"email"`
	WhatsApp        string     `json:"whatsapp"`
	RecebeEmail     bool       `json:"recebe_email"`
	RecebeWhatsApp  bool       `json:"recebe_whatsapp"`
	EnvioRecorrente bool       `json:"envio_recorrente"`
	IntervaloDias   *int       `json:"intervalo_dias,omitempty"`
	UltimoEnvio     *time.Time `json:"ultimo_envio,omitempty"`
	ProximoEnvio    *time.Time `json:"proximo_envio,omitempty"`
	Ativo           bool       `json:"ativo"`
}

// EmailReady reports whether this recipient can receive the email channel.
func (r Recipient) EmailReady() bool {
	return r.RecebeEmail && strings.TrimSpace(r.Email) != ""
}

// WhatsAppReady reports whether this recipient can receive the WhatsApp channel.
func (r Recipient) WhatsAppReady() bool {
	return r.RecebeWhatsApp && strings.TrimSpace(r.WhatsApp) != ""
}

// RecipientRepo reads and updates the destinatarios_relatorios table.
type RecipientRepo struct {
	db database.Querier
}

func NewRecipientRepo(db database.Querier) *RecipientRepo {
	return &RecipientRepo{db: db}
}

const recipientColumns = `id, nome, COALESCE(email, ''), COALESCE(whatsapp, ''),
	recebe_email, recebe_whatsapp, envio_recorrente, intervalo_dias,
	ultimo_envio, proximo_envio, ativo`

func (r *RecipientRepo) scanRows(rows pgx.Rows) ([]Recipient, error) {
	defer rows.Close()
	var out []Recipient
	for rows.Next() {
		var rec Recipient
		if err := rows.Scan(&rec.ID, &rec.Nome, &rec.Email, &rec.WhatsApp,
			&rec.RecebeEmail, &rec.RecebeWhatsApp, &rec.EnvioRecorrente,
			&rec.IntervaloDias, &rec.UltimoEnvio, &rec.ProximoEnvio, &rec.Ativo); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetActiveByIDs loads the active recipients among the given ids.
func (r *RecipientRepo) GetActiveByIDs(ctx context.Context, ids []int64) ([]Recipient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recipientColumns+`
		FROM destinatarios_relatorios
		WHERE ativo AND id = ANY($1)
		ORDER BY nome
	`, ids)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}

// ListActive returns every active recipient, for the registry endpoint.
func (r *RecipientRepo) ListActive(ctx context.Context) ([]Recipient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recipientColumns+`
		FROM destinatarios_relatorios
		WHERE ativo
		ORDER BY nome
	`)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}

// ListDue returns recurring recipients whose next scheduled send has passed.
func (r *RecipientRepo) ListDue(ctx context.Context, now time.Time) ([]Recipient, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recipientColumns+`
		FROM destinatarios_relatorios
		WHERE ativo AND envio_recorrente AND proximo_envio IS NOT NULL AND proximo_envio <= $1
		ORDER BY proximo_envio
	`, now)
	if err != nil {
		return nil, err
	}
	return r.scanRows(rows)
}

// StampSchedule advances the recurring-send bookkeeping after a successful
// dispatch: last sent now, next sent now + interval, and the report types
// that went out.
func (r *RecipientRepo) StampSchedule(ctx context.Context, id int64, now time.Time, intervalDays int, reportTypes []string) error {
	next := now.AddDate(0, 0, intervalDays)
	_, err := r.db.Exec(ctx, `
		UPDATE destinatarios_relatorios
		SET ultimo_envio = $1, proximo_envio = $2, ultimos_relatorios = $3
		WHERE id = $4
	`, now, next, strings.Join(reportTypes, ","), id)
	return err
}
