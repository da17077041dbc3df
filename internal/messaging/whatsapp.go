package messaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rebanho/backend/internal/config"
)

// WhatsAppSender is the outbound WhatsApp transport. SupportsMedia tells the
// orchestrator whether workbook files and the digest chart can travel on this
// channel or only the digest text.
type WhatsAppSender interface {
	SendText(ctx context.Context, to, text string) error
	SendMedia(ctx context.Context, to, filename, caption, mimeType string, data []byte) error
	SupportsMedia() bool
}

// NewWhatsAppSender picks the provider from configuration. Returns nil when
// no provider is configured.
func NewWhatsAppSender(cfg config.Config) WhatsAppSender {
	switch cfg.WhatsAppProvider {
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioWhatsAppNumber == "" {
			return nil
		}
		return &twilioSender{
			accountSID: cfg.TwilioAccountSID,
			authToken:  cfg.TwilioAuthToken,
			from:       cfg.TwilioWhatsAppNumber,
			client:     &http.Client{Timeout: 15 * time.Second},
		}
	case "evolution":
		if cfg.EvolutionAPIURL == "" || cfg.EvolutionAPIKey == "" || cfg.EvolutionInstance == "" {
			return nil
		}
		return &evolutionSender{
			baseURL:  cfg.EvolutionAPIURL,
			apiKey:   cfg.EvolutionAPIKey,
			instance: cfg.EvolutionInstance,
			client:   &http.Client{Timeout: 15 * time.Second},
		}
	}
	return nil
}

// twilioSender sends through the Twilio Messages API. Twilio media messages
// require a publicly hosted URL, so this provider is text-only.
type twilioSender struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func (t *twilioSender) SupportsMedia() bool { return false }

func (t *twilioSender) SendText(ctx context.Context, to, text string) error {
	form := url.Values{}
	form.Set("From", "whatsapp:"+t.from)
	form.Set("To", "whatsapp:"+normalizePhone(to))
	form.Set("Body", text)

	apiURL := "https://api.twilio.com/2010-04-01/Accounts/" + t.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("twilio: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (t *twilioSender) SendMedia(ctx context.Context, to, filename, caption, mimeType string, data []byte) error {
	return fmt.Errorf("twilio: envio de mídia não suportado")
}

// evolutionSender sends through an Evolution API instance, which accepts
// base64 media inline.
type evolutionSender struct {
	baseURL  string
	apiKey   string
	instance string
	client   *http.Client
}

func (e *evolutionSender) SupportsMedia() bool { return true }

func (e *evolutionSender) SendText(ctx context.Context, to, text string) error {
	payload := map[string]any{
		"number": normalizePhone(to),
		"text":   text,
	}
	return e.post(ctx, "/message/sendText/", payload)
}

func (e *evolutionSender) SendMedia(ctx context.Context, to, filename, caption, mimeType string, data []byte) error {
	mediatype := "document"
	if strings.HasPrefix(mimeType, "image/") {
		mediatype = "image"
	}
	payload := map[string]any{
		"number":    normalizePhone(to),
		"mediatype": mediatype,
		"mimetype":  mimeType,
		"fileName":  filename,
		"caption":   caption,
		"media":     base64.StdEncoding.EncodeToString(data),
	}
	return e.post(ctx, "/message/sendMedia/", payload)
}

func (e *evolutionSender) post(ctx context.Context, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path+e.instance, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("evolution: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("evolution: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// normalizePhone strips formatting characters, keeping digits and a leading +.
func normalizePhone(v string) string {
	v = strings.TrimSpace(v)
	var sb strings.Builder
	for i, r := range v {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		} else if r == '+' && i == 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
