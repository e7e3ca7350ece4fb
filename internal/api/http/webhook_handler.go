package httpapi

import (
	"errors"
	"io"
	"net/http"

	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/payment"
)

// maxWebhookBody caps inbound webhook payloads. Processor events are
// small; anything larger is garbage.
const maxWebhookBody = 1 << 20

// handlePaymentWebhook verifies the processor's signature over the raw
// body, parses the event, and hands it to the reconciler. A 2xx here is
// the acknowledgement that stops the processor from redelivering, so
// ignorable events (unknown kinds, unknown intents, redeliveries) all
// return 200; only signature failures and real reconciliation errors do
// not.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "unreadable body", nil)
		return
	}
	defer r.Body.Close()

	header := r.Header.Get("Stripe-Signature")
	event, err := payment.ParseEvent(body, header, s.webhookSecret, payment.DefaultTolerance)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownEventKind) {
			// Subscribed-but-unhandled kinds are acknowledged so the
			// processor does not retry them forever.
			logger.InfoContext(r.Context(), "ignoring webhook event kind", "error", err)
			WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		logger.WarnContext(r.Context(), "rejected payment webhook",
			"reqid", GetRequestID(r), "remote", clientIP(r), "error", err)
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid webhook signature", nil)
		return
	}

	if err := s.pledges.Reconcile(r.Context(), event); err != nil {
		// A 5xx makes the processor redeliver; reconciliation is
		// idempotent so the retry is safe.
		logger.ErrorContext(r.Context(), "webhook reconciliation failed", "event_id", event.ID, "error", err)
		WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "reconciliation failed", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
