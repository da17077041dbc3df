package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"rebanho/backend/internal/dispatch"
	"rebanho/backend/internal/report"
)

func (s *Server) handleReportTypes(w http.ResponseWriter, r *http.Request) {
	entries := report.Catalog()
	out := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]string{
			"tag":    string(e.Tag),
			"titulo": e.Title,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"tipos": out})
}

func (s *Server) handleRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := s.recipients.ListActive(r.Context())
	if err != nil {
		s.log.Error("listing recipients failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "falha ao listar destinatários"})
		return
	}
	if recipients == nil {
		recipients = []dispatch.Recipient{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"destinatarios": recipients})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientIP(r)) {
		respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "muitas solicitações, tente novamente em instantes"})
		return
	}

	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "corpo da requisição inválido"})
		return
	}

	resp, err := s.dispatcher.Run(r.Context(), req)
	if err != nil {
		var vErr *dispatch.ValidationError
		if errors.As(err, &vErr) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": vErr.Error()})
			return
		}
		s.log.Error("dispatch failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "falha ao processar envio de relatórios"})
		return
	}

	var chartImage any
	if resp.Chart != nil {
		chartImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(resp.Chart)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"dispatchId": resp.ID,
		"message":    fmt.Sprintf("Envio processado para %d destinatário(s)", len(resp.Results)),
		"results":    resp.Results,
		"summary":    resp.Summary,
		"chartImage": chartImage,
		"stats":      resp.Stats,
	})
}
