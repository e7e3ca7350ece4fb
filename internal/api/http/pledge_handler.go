package httpapi

import (
	"net/http"
)

type createPledgeRequest struct {
	PledgeOptionID int32 `json:"pledge_option_id"`
}

// handleCreatePledge opens a checkout session and returns the redirect
// URL. The pledge completes later, when the payment webhook arrives.
func (s *Server) handleCreatePledge(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	projectID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	var req createPledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	if req.PledgeOptionID <= 0 {
		WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "pledge_option_id is required", nil)
		return
	}

	intent, err := s.pledges.CreatePledgeIntent(r.Context(), claims.UserID, projectID, req.PledgeOptionID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, intent)
}

func (s *Server) handleListMyPledges(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	page, pageSize := pageParams(r)

	pledges, total, err := s.pledges.ListUserPledges(r.Context(), claims.UserID, page, pageSize)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"pledges": pledges, "total": total})
}

func (s *Server) handleListProjectPledges(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	projectID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}
	page, pageSize := pageParams(r)

	pledges, total, err := s.pledges.ListProjectPledges(r.Context(), claims.UserID, projectID, page, pageSize)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"pledges": pledges, "total": total})
}
