package httpapi

import (
	"net/http"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/service"
)

type createCompanyRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	var req createCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	company, err := s.companies.CreateCompany(r.Context(), claims.UserID, req.Name, req.Slug)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, company)
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	company, err := s.companies.GetCompany(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	// Settings hold integration credentials; only members see them.
	if claims, ok := Claims(r); ok {
		role, err := s.access.RoleInCompany(r.Context(), claims.UserID, id)
		if err == nil && role != service.RoleNone {
			WriteJSON(w, http.StatusOK, company)
			return
		}
	}
	company.Settings = domain.CompanySettings{}
	WriteJSON(w, http.StatusOK, company)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	var settings domain.CompanySettings
	if err := decodeJSON(r, &settings); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	if err := s.companies.UpdateSettings(r.Context(), claims.UserID, id, settings); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type memberResponse struct {
	UserID   int32             `json:"user_id"`
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Role     domain.MemberRole `json:"role"`
	JoinedOn string            `json:"joined_on"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	members, users, err := s.companies.ListMembers(r.Context(), claims.UserID, id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for i, m := range members {
		entry := memberResponse{UserID: m.UserID, Role: m.Role, JoinedOn: m.JoinedOn.Format(time.RFC3339)}
		if i < len(users) {
			entry.Name = users[i].Name
			entry.Email = users[i].Email
		}
		resp = append(resp, entry)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"members": resp})
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid user id", nil)
		return
	}

	if err := s.companies.RemoveMember(r.Context(), claims.UserID, userID, companyID); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createInviteRequest struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	var req createInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	invite, err := s.companies.InviteUser(r.Context(), claims.UserID, companyID, req.Email, req.Name)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, invite)
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	invites, err := s.companies.ListInvites(r.Context(), claims.UserID, companyID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"invites": invites})
}

func (s *Server) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	if err := s.access.RequestPrivateAccess(r.Context(), claims.UserID, companyID); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

func (s *Server) handleListAccessRequests(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	grants, err := s.access.ListAccessRequests(r.Context(), claims.UserID, companyID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"access_requests": grants})
}

type reviewAccessRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) handleReviewAccess(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}
	userID, ok := pathID(r, "userID")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid user id", nil)
		return
	}

	var req reviewAccessRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	if err := s.access.ReviewPrivateAccess(r.Context(), claims.UserID, userID, companyID, req.Approve); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "reviewed"})
}
