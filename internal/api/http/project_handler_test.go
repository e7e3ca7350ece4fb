package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/security"
	"pledgekit-backend/internal/service"
)

type mockProjectService struct {
	mock.Mock
}

func (m *mockProjectService) CreateProject(ctx context.Context, actorID int32, project *domain.Project) error {
	args := m.Called(ctx, actorID, project)
	return args.Error(0)
}

func (m *mockProjectService) GetProject(ctx context.Context, projectID int32, actorID *int32) (*domain.Project, error) {
	args := m.Called(ctx, projectID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *mockProjectService) ListProjects(ctx context.Context, actorID *int32) ([]domain.Project, error) {
	args := m.Called(ctx, actorID)
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *mockProjectService) ListCompanyProjects(ctx context.Context, actorID, companyID, page, pageSize int32) ([]domain.Project, int32, error) {
	args := m.Called(ctx, actorID, companyID, page, pageSize)
	return args.Get(0).([]domain.Project), args.Get(1).(int32), args.Error(2)
}

func (m *mockProjectService) EditProject(ctx context.Context, actorID, projectID int32, patch service.ProjectPatch) (*domain.Project, error) {
	args := m.Called(ctx, actorID, projectID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *mockProjectService) Publish(ctx context.Context, actorID, projectID int32) (*domain.Project, error) {
	args := m.Called(ctx, actorID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *mockProjectService) SetVisibility(ctx context.Context, actorID, projectID int32, v domain.ProjectVisibility) error {
	args := m.Called(ctx, actorID, projectID, v)
	return args.Error(0)
}

func (m *mockProjectService) Cancel(ctx context.Context, actorID, projectID int32) (*domain.Project, error) {
	args := m.Called(ctx, actorID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *mockProjectService) Complete(ctx context.Context, actorID, projectID int32) (*domain.Project, error) {
	args := m.Called(ctx, actorID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *mockProjectService) AddPledgeOption(ctx context.Context, actorID int32, option *domain.PledgeOption) error {
	args := m.Called(ctx, actorID, option)
	return args.Error(0)
}

func (m *mockProjectService) UpdatePledgeOption(ctx context.Context, actorID int32, option *domain.PledgeOption) error {
	args := m.Called(ctx, actorID, option)
	return args.Error(0)
}

func (m *mockProjectService) DeletePledgeOption(ctx context.Context, actorID, optionID int32) error {
	args := m.Called(ctx, actorID, optionID)
	return args.Error(0)
}

func (m *mockProjectService) ListPledgeOptions(ctx context.Context, projectID int32, actorID *int32) ([]domain.PledgeOption, error) {
	args := m.Called(ctx, projectID, actorID)
	return args.Get(0).([]domain.PledgeOption), args.Error(1)
}

// authedRequest builds a request carrying claims and mux path vars the
// way the router middleware would.
func authedRequest(method, target string, userID int32, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	claims := &security.UserClaims{UserID: userID, Type: security.TokenTypeAccess}
	req = req.WithContext(context.WithValue(req.Context(), claimsKey, claims))
	return mux.SetURLVars(req, vars)
}

func TestHandlePublishProject(t *testing.T) {
	t.Run("PublishedProjectBecomesPublic", func(t *testing.T) {
		projects := new(mockProjectService)
		srv := &Server{projects: projects}

		published := &domain.Project{
			ID:         1,
			CompanyID:  2,
			Title:      "Self-hosted runners",
			Status:     domain.ProjectStatusPublished,
			Visibility: domain.VisibilityPrivate,
		}
		projects.On("Publish", mock.Anything, int32(7), int32(1)).Return(published, nil)
		projects.On("SetVisibility", mock.Anything, int32(7), int32(1), domain.VisibilityPublic).Return(nil)

		rec := httptest.NewRecorder()
		srv.handlePublishProject(rec, authedRequest(http.MethodPost, "/api/v1/projects/1/publish", 7, map[string]string{"id": "1"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		var got domain.Project
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, domain.ProjectStatusPublished, got.Status)
		assert.Equal(t, domain.VisibilityPublic, got.Visibility)
		projects.AssertExpectations(t)
	})

	t.Run("FailedPublishLeavesVisibilityAlone", func(t *testing.T) {
		projects := new(mockProjectService)
		srv := &Server{projects: projects}

		projects.On("Publish", mock.Anything, int32(7), int32(1)).Return(nil, service.ErrInvalidTransition)

		rec := httptest.NewRecorder()
		srv.handlePublishProject(rec, authedRequest(http.MethodPost, "/api/v1/projects/1/publish", 7, map[string]string{"id": "1"}))

		assert.Equal(t, http.StatusConflict, rec.Code)
		projects.AssertNotCalled(t, "SetVisibility", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
