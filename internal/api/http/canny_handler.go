package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"pledgekit-backend/internal/service"
)

func (s *Server) handleCannySync(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	// Manual trigger requires membership; the scheduled job syncs
	// everyone on its own cadence.
	role, err := s.access.RoleInCompany(r.Context(), claims.UserID, companyID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if role == service.RoleNone {
		WriteProblem(w, http.StatusForbidden, "Forbidden", "access denied", nil)
		return
	}

	syncLog, err := s.cannySync.SyncCompany(r.Context(), companyID)
	if err != nil && syncLog == nil {
		WriteServiceError(w, r, err)
		return
	}
	// A failed sync still produced a log row worth returning.
	WriteJSON(w, http.StatusOK, syncLog)
}

func (s *Server) handleCannyBoards(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}

	boards, err := s.cannySync.ListBoards(r.Context(), claims.UserID, companyID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"boards": boards})
}

func (s *Server) handleCannyPosts(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}
	page, pageSize := pageParams(r)
	boardID := r.URL.Query().Get("board_id")

	posts, total, err := s.cannySync.ListPosts(r.Context(), claims.UserID, companyID, boardID, page, pageSize)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"posts": posts, "total": total})
}

type linkPostRequest struct {
	ProjectID int32 `json:"project_id"`
}

func (s *Server) handleCannyLinkPost(w http.ResponseWriter, r *http.Request) {
	claims, _ := Claims(r)
	companyID, ok := pathID(r, "id")
	if !ok {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid company id", nil)
		return
	}
	postID := mux.Vars(r)["postID"]
	if postID == "" {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid post id", nil)
		return
	}

	var req linkPostRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	if req.ProjectID <= 0 {
		WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "project_id is required", nil)
		return
	}

	if err := s.cannySync.LinkPost(r.Context(), claims.UserID, companyID, postID, req.ProjectID); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}
