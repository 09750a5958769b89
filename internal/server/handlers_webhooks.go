package server

import (
	"io"
	"log"
	"net/http"

	"github.com/jonathan/nexthire/internal/policy"
	"github.com/jonathan/nexthire/internal/webhook"
)

const maxWebhookBody = 1 << 20

// handleClerkWebhook applies identity-provider user lifecycle events to
// local profiles.
func (s *Server) handleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhook == nil {
		log.Printf("[webhooks] delivery rejected: no signing secret configured")
		s.errorResponse(w, http.StatusInternalServerError, "Webhook secret not configured")
		return
	}

	headers, err := webhook.HeadersFrom(r.Header)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Missing svix headers")
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.webhook.Verify(headers, body); err != nil {
		log.Printf("[webhooks] verification of %s failed: %v", headers.ID, err)
		s.errorResponse(w, http.StatusBadRequest, "Webhook verification failed")
		return
	}

	event, err := webhook.Parse(body)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	switch event.Type {
	case webhook.EventUserCreated:
		s.webhookUserCreated(w, r, event)
	case webhook.EventUserDeleted:
		s.webhookUserDeleted(w, r, event)
	default:
		s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Webhook received"})
	}
}

func (s *Server) webhookUserCreated(w http.ResponseWriter, r *http.Request, event *webhook.Event) {
	user, err := event.User()
	if err != nil || user.ID == "" {
		s.errorResponse(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	email := user.PrimaryEmail()
	if email == "" {
		s.errorResponse(w, http.StatusBadRequest, "No primary email found")
		return
	}

	if _, _, err := s.store.EnsureProfile(r.Context(), user.ID, ""); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.identity.SetRole(r.Context(), user.ID, policy.RoleApplicant); err != nil {
		s.writeError(w, r, err)
		return
	}

	log.Printf("[webhooks] registered user %s (%s)", user.ID, user.DisplayName())
	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"message": "User created successfully",
		"userId":  user.ID,
		"email":   email,
		"role":    string(policy.RoleApplicant),
	})
}

func (s *Server) webhookUserDeleted(w http.ResponseWriter, r *http.Request, event *webhook.Event) {
	user, err := event.User()
	if err != nil || user.ID == "" {
		s.errorResponse(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	removed, err := s.store.DeleteProfile(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if removed {
		log.Printf("[webhooks] removed profile of %s", user.ID)
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": "Webhook received"})
}
