package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Koded0214h/MicroServices/mail"
)

// SendEmailRequest is the POST /emails payload.
type SendEmailRequest struct {
	From     *mail.Recipient  `json:"from,omitempty"`
	To       []mail.Recipient `json:"to"`
	Subject  string           `json:"subject"`
	HTMLBody string           `json:"html_body,omitempty"`
	TextBody string           `json:"text_body,omitempty"`
	Category string           `json:"category,omitempty"`
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	msg := &mail.Message{
		To:       req.To,
		Subject:  req.Subject,
		HTMLBody: req.HTMLBody,
		TextBody: req.TextBody,
		Category: req.Category,
	}
	if req.From != nil {
		msg.From = *req.From
	}

	receipt, err := s.mailSvc.Send(r.Context(), msg)
	if err != nil {
		if errors.Is(err, mail.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusBadGateway, "Delivery failed: "+err.Error())
		return
	}

	s.writeJSON(w, http.StatusAccepted, receipt)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.mailSvc.Stats())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	logs, err := s.mailSvc.RecentLogs(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to read delivery log: "+err.Error())
		return
	}
	if logs == nil {
		logs = []mail.DeliveryRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

// OnboardingRequest covers the three onboarding endpoints; Token and
// InviterName are only required by some of them.
type OnboardingRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Token       string `json:"token,omitempty"`
	InviterName string `json:"inviter_name,omitempty"`
}

func (s *Server) decodeOnboarding(w http.ResponseWriter, r *http.Request) (*OnboardingRequest, bool) {
	var req OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if req.Address == "" {
		s.writeError(w, http.StatusBadRequest, "address is required")
		return nil, false
	}
	return &req, true
}

func (s *Server) writeOnboardingResult(w http.ResponseWriter, receipt *mail.Receipt, err error) {
	if err != nil {
		if errors.Is(err, mail.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusBadGateway, "Delivery failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, receipt)
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOnboarding(w, r)
	if !ok {
		return
	}
	receipt, err := s.mailSvc.SendWelcome(r.Context(), req.Name, req.Address)
	s.writeOnboardingResult(w, receipt, err)
}

func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOnboarding(w, r)
	if !ok {
		return
	}
	if req.Token == "" {
		s.writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	receipt, err := s.mailSvc.SendVerification(r.Context(), req.Name, req.Address, req.Token)
	s.writeOnboardingResult(w, receipt, err)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeOnboarding(w, r)
	if !ok {
		return
	}
	if req.Token == "" {
		s.writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	receipt, err := s.mailSvc.SendInvite(r.Context(), req.InviterName, req.Name, req.Address, req.Token)
	s.writeOnboardingResult(w, receipt, err)
}
