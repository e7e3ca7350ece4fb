package httpapi

import (
	"context"
	"net/http"
	"time"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/service"
)

type createProjectRequest struct {
	CompanyID   int32  `json:"company_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	GoalCents   int64  `json:"goal_cents"`
	EndDate     string `json:"end_date,omitempty"` // RFC 3339
	Visibility  string `json:"visibility,omitempty"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	project := &domain.Project{
		CompanyID:   req.CompanyID,
		Title:       req.Title,
		Description: req.Description,
		GoalCents:   req.GoalCents,
		Visibility:  domain.ProjectVisibility(req.Visibility),
	}
	if req.EndDate != "" {
		endDate, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "end date must be RFC 3339", nil)
			return
		}
		project.EndDate = endDate
	}

	if err := s.projects.CreateProject(r.Context(), claims.UserID, project); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ListProjects(r.Context(), ActorID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	project, err := s.projects.GetProject(r.Context(), id, ActorID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

func (s *Server) handleListCompanyProjects(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}
	page, pageSize := pageParams(r)

	projects, total, err := s.projects.ListCompanyProjects(r.Context(), claims.UserID, companyID, page, pageSize)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"projects": projects, "total": total})
}

type editProjectRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	GoalCents   *int64  `json:"goal_cents,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
}

func (s *Server) handleEditProject(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	var req editProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	project, err := s.projects.EditProject(r.Context(), claims.UserID, id, service.ProjectPatch{
		Title:       req.Title,
		Description: req.Description,
		GoalCents:   req.GoalCents,
		EndDate:     req.EndDate,
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// handlePublishProject moves the draft to published and then widens
// visibility to public, preserving the external behavior that
// publishing exposes the campaign. Owners can narrow visibility again
// through the visibility endpoint afterwards.
func (s *Server) handlePublishProject(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	project, err := s.projects.Publish(r.Context(), claims.UserID, id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if err := s.projects.SetVisibility(r.Context(), claims.UserID, id, domain.VisibilityPublic); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	project.Visibility = domain.VisibilityPublic
	WriteJSON(w, http.StatusOK, project)
}

func (s *Server) handleCancelProject(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.projects.Cancel)
}

func (s *Server) handleCompleteProject(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.projects.Complete)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, actorID, projectID int32) (*domain.Project, error)) {
	claims, _ := Claims(r)
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	project, err := transition(r.Context(), claims.UserID, id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

type setVisibilityRequest struct {
	Visibility string `json:"visibility"`
}

func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	id, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	var req setVisibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	if err := s.projects.SetVisibility(r.Context(), claims.UserID, id, domain.ProjectVisibility(req.Visibility)); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type pledgeOptionRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AmountCents int64    `json:"amount_cents"`
	Benefits    []string `json:"benefits,omitempty"`
}

func (s *Server) handleAddPledgeOption(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	projectID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	var req pledgeOptionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	option := &domain.PledgeOption{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Benefits:    req.Benefits,
	}
	if err := s.projects.AddPledgeOption(r.Context(), claims.UserID, option); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, option)
}

func (s *Server) handleUpdatePledgeOption(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	optionID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid option id", nil)
		return
	}

	var req pledgeOptionRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}

	option := &domain.PledgeOption{
		ID:          optionID,
		Title:       req.Title,
		Description: req.Description,
		AmountCents: req.AmountCents,
		Benefits:    req.Benefits,
	}
	if err := s.projects.UpdatePledgeOption(r.Context(), claims.UserID, option); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, option)
}

func (s *Server) handleDeletePledgeOption(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	optionID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid option id", nil)
		return
	}

	if err := s.projects.DeletePledgeOption(r.Context(), claims.UserID, optionID); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPledgeOptions(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid project id", nil)
		return
	}

	options, err := s.projects.ListPledgeOptions(r.Context(), projectID, ActorID(r))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"options": options})
}
