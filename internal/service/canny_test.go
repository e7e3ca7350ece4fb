package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pledgekit-backend/internal/canny"
	"pledgekit-backend/internal/domain"
	"pledgekit-backend/internal/service"
)

type MockCannyRepo struct {
	mock.Mock
}

func (m *MockCannyRepo) UpsertBoards(ctx context.Context, boards []domain.CannyBoard) error {
	args := m.Called(ctx, boards)
	return args.Error(0)
}

func (m *MockCannyRepo) UpsertPosts(ctx context.Context, posts []domain.CannyPost) error {
	args := m.Called(ctx, posts)
	return args.Error(0)
}

func (m *MockCannyRepo) ListBoards(ctx context.Context, companyID int32) ([]domain.CannyBoard, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]domain.CannyBoard), args.Error(1)
}

func (m *MockCannyRepo) ListPosts(ctx context.Context, companyID int32, boardID string, page, pageSize int32) ([]domain.CannyPost, int32, error) {
	args := m.Called(ctx, companyID, boardID, page, pageSize)
	return args.Get(0).([]domain.CannyPost), args.Get(1).(int32), args.Error(2)
}

func (m *MockCannyRepo) LinkPostToProject(ctx context.Context, companyID int32, cannyPostID string, projectID int32) error {
	args := m.Called(ctx, companyID, cannyPostID, projectID)
	return args.Error(0)
}

func (m *MockCannyRepo) CreateSyncLog(ctx context.Context, log *domain.CannySyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockCannyRepo) ListSyncLogs(ctx context.Context, companyID int32, limit int32) ([]domain.CannySyncLog, error) {
	args := m.Called(ctx, companyID, limit)
	return args.Get(0).([]domain.CannySyncLog), args.Error(1)
}

type MockCannyClient struct {
	mock.Mock
}

func (m *MockCannyClient) ListBoards(ctx context.Context, apiKey string) ([]canny.Board, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]canny.Board), args.Error(1)
}

func (m *MockCannyClient) ListPosts(ctx context.Context, apiKey, boardID string) ([]canny.Post, error) {
	args := m.Called(ctx, apiKey, boardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]canny.Post), args.Error(1)
}

type cannyFixture struct {
	companies *MockCompanyRepo
	boards    *MockCannyRepo
	projects  *MockProjectRepo
	members   *MockMemberRepo
	client    *MockCannyClient
	svc       service.CannySyncService
}

func newCannyFixture() *cannyFixture {
	f := &cannyFixture{
		companies: new(MockCompanyRepo),
		boards:    new(MockCannyRepo),
		projects:  new(MockProjectRepo),
		members:   new(MockMemberRepo),
		client:    new(MockCannyClient),
	}
	f.svc = service.NewCannySyncService(f.companies, f.boards, f.projects, f.members, f.client)
	return f
}

func keyedCompany(id int32, apiKey string) *domain.Company {
	return &domain.Company{
		ID:       id,
		Name:     "Acme",
		Slug:     "acme",
		Settings: domain.CompanySettings{Version: domain.SettingsVersion, CannyAPIKey: apiKey},
	}
}

func TestSyncCompany(t *testing.T) {
	ctx := context.Background()

	t.Run("MirrorsBoardsAndPosts", func(t *testing.T) {
		f := newCannyFixture()
		f.companies.On("GetByID", ctx, int32(2)).Return(keyedCompany(2, "canny-key"), nil)
		f.client.On("ListBoards", ctx, "canny-key").Return([]canny.Board{
			{ID: "b1", Name: "Feature Requests", PostCount: 2},
		}, nil)
		f.client.On("ListPosts", ctx, "canny-key", "b1").Return([]canny.Post{
			{ID: "p1", Title: "Dark mode", Status: "open", Score: 12},
			{ID: "p2", Title: "CSV export", Status: "planned", Score: 7},
		}, nil)
		f.boards.On("UpsertBoards", ctx, mock.MatchedBy(func(bs []domain.CannyBoard) bool {
			return len(bs) == 1 && bs[0].CompanyID == 2 && bs[0].CannyBoardID == "b1"
		})).Return(nil)
		f.boards.On("UpsertPosts", ctx, mock.MatchedBy(func(ps []domain.CannyPost) bool {
			return len(ps) == 2 && ps[0].CannyBoardID == "b1"
		})).Return(nil)
		f.boards.On("CreateSyncLog", ctx, mock.MatchedBy(func(l *domain.CannySyncLog) bool {
			return l.CompanyID == 2 && l.Outcome == domain.SyncOutcomeSuccess && l.BoardCount == 1 && l.PostCount == 2
		})).Return(nil)

		syncLog, err := f.svc.SyncCompany(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, domain.SyncOutcomeSuccess, syncLog.Outcome)
		assert.Equal(t, int32(2), syncLog.PostCount)
		f.boards.AssertExpectations(t)
	})

	t.Run("MissingAPIKeyIsRejected", func(t *testing.T) {
		f := newCannyFixture()
		f.companies.On("GetByID", ctx, int32(2)).Return(keyedCompany(2, ""), nil)

		_, err := f.svc.SyncCompany(ctx, 2)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("FailedPullStillWritesLog", func(t *testing.T) {
		f := newCannyFixture()
		f.companies.On("GetByID", ctx, int32(2)).Return(keyedCompany(2, "canny-key"), nil)
		f.client.On("ListBoards", ctx, "canny-key").Return(nil, errors.New("canny: invalid api key"))
		f.boards.On("CreateSyncLog", ctx, mock.MatchedBy(func(l *domain.CannySyncLog) bool {
			return l.CompanyID == 2 && l.Outcome == domain.SyncOutcomeFailed && l.Error != ""
		})).Return(nil)

		syncLog, err := f.svc.SyncCompany(ctx, 2)
		assert.Error(t, err)
		assert.Equal(t, domain.SyncOutcomeFailed, syncLog.Outcome)
		f.boards.AssertExpectations(t)
	})

	t.Run("UnknownCompany", func(t *testing.T) {
		f := newCannyFixture()
		f.companies.On("GetByID", ctx, int32(99)).Return(nil, sql.ErrNoRows)

		_, err := f.svc.SyncCompany(ctx, 99)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()

	t.Run("OneBadKeyDoesNotStopTheSweep", func(t *testing.T) {
		f := newCannyFixture()
		f.companies.On("ListWithCannyKey", ctx).Return([]domain.Company{
			*keyedCompany(1, "bad-key"),
			*keyedCompany(2, "good-key"),
		}, nil)
		f.companies.On("GetByID", ctx, int32(1)).Return(keyedCompany(1, "bad-key"), nil)
		f.companies.On("GetByID", ctx, int32(2)).Return(keyedCompany(2, "good-key"), nil)
		f.client.On("ListBoards", ctx, "bad-key").Return(nil, errors.New("canny: invalid api key"))
		f.client.On("ListBoards", ctx, "good-key").Return([]canny.Board{}, nil)
		f.boards.On("UpsertBoards", ctx, mock.Anything).Return(nil)
		f.boards.On("UpsertPosts", ctx, mock.Anything).Return(nil)
		f.boards.On("CreateSyncLog", ctx, mock.Anything).Return(nil)

		err := f.svc.SyncAll(ctx)
		assert.NoError(t, err)
		f.client.AssertCalled(t, "ListBoards", ctx, "good-key")
	})
}

func TestLinkPost(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newCannyFixture()
		f.members.On("Get", ctx, int32(7), int32(2)).Return(&domain.CompanyMember{UserID: 7, CompanyID: 2}, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(&domain.Project{ID: 1, CompanyID: 2}, nil)
		f.boards.On("LinkPostToProject", ctx, int32(2), "p1", int32(1)).Return(nil)

		err := f.svc.LinkPost(ctx, 7, 2, "p1", 1)
		assert.NoError(t, err)
		f.boards.AssertExpectations(t)
	})

	t.Run("NonMemberIsDenied", func(t *testing.T) {
		f := newCannyFixture()
		f.members.On("Get", ctx, int32(7), int32(2)).Return(nil, sql.ErrNoRows)

		err := f.svc.LinkPost(ctx, 7, 2, "p1", 1)
		assert.ErrorIs(t, err, service.ErrNotAuthorized)
	})

	t.Run("ProjectFromAnotherCompanyIsRejected", func(t *testing.T) {
		f := newCannyFixture()
		f.members.On("Get", ctx, int32(7), int32(2)).Return(&domain.CompanyMember{UserID: 7, CompanyID: 2}, nil)
		f.projects.On("GetByID", ctx, int32(1)).Return(&domain.Project{ID: 1, CompanyID: 3}, nil)

		err := f.svc.LinkPost(ctx, 7, 2, "p1", 1)
		assert.ErrorIs(t, err, service.ErrValidation)
		f.boards.AssertNotCalled(t, "LinkPostToProject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
