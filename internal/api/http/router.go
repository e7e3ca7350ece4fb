package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"pledgekit-backend/internal/config"
	"pledgekit-backend/internal/ratelimit"
	"pledgekit-backend/internal/security"
	"pledgekit-backend/internal/service"
)

// Server holds the service dependencies behind the HTTP API.
type Server struct {
	auth      service.AuthService
	companies service.CompanyService
	projects  service.ProjectService
	pledges   service.PledgeService
	access    service.AccessControlService
	cannySync service.CannySyncService

	tokens        security.TokenManager
	webhookSecret string

	authLimiter     *ratelimit.Limiter
	checkoutLimiter *ratelimit.Limiter
}

func NewServer(
	auth service.AuthService,
	companies service.CompanyService,
	projects service.ProjectService,
	pledges service.PledgeService,
	access service.AccessControlService,
	cannySync service.CannySyncService,
	tokens security.TokenManager,
	cfg *config.Config,
) *Server {
	return &Server{
		auth:          auth,
		companies:     companies,
		projects:      projects,
		pledges:       pledges,
		access:        access,
		cannySync:     cannySync,
		tokens:        tokens,
		webhookSecret: cfg.Stripe.WebhookSecret,
		authLimiter: ratelimit.NewLimiter(
			cfg.RateLimit.AuthAttempts,
			time.Duration(cfg.RateLimit.AuthWindowMinutes)*time.Minute),
		checkoutLimiter: ratelimit.NewLimiter(
			cfg.RateLimit.CheckoutAttempts,
			time.Duration(cfg.RateLimit.CheckoutWindowMins)*time.Minute),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, AccessLog, Recoverer)

	auth := &authMiddleware{tokens: s.tokens}
	authLimit := RateLimit(s.authLimiter)
	checkoutLimit := RateLimit(s.checkoutLimiter)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// The webhook authenticates by signature, not by bearer token.
	r.HandleFunc("/webhooks/payment", s.handlePaymentWebhook).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.Handle("/auth/signup", authLimit(http.HandlerFunc(s.handleSignup))).Methods(http.MethodPost)
	api.Handle("/auth/login", authLimit(http.HandlerFunc(s.handleLogin))).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.Handle("/auth/confirm", authLimit(http.HandlerFunc(s.handleConfirmEmail))).Methods(http.MethodGet)

	// Public project surface; visibility widens with a valid token.
	public := api.NewRoute().Subrouter()
	public.Use(auth.Optional)
	public.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	public.HandleFunc("/projects/{id:[0-9]+}", s.handleGetProject).Methods(http.MethodGet)
	public.HandleFunc("/projects/{id:[0-9]+}/options", s.handleListPledgeOptions).Methods(http.MethodGet)
	public.HandleFunc("/companies/{id:[0-9]+}", s.handleGetCompany).Methods(http.MethodGet)

	private := api.NewRoute().Subrouter()
	private.Use(auth.Require)

	private.HandleFunc("/companies", s.handleCreateCompany).Methods(http.MethodPost)
	private.HandleFunc("/companies/{id:[0-9]+}/settings", s.handleUpdateSettings).Methods(http.MethodPut)
	private.HandleFunc("/companies/{id:[0-9]+}/members", s.handleListMembers).Methods(http.MethodGet)
	private.HandleFunc("/companies/{id:[0-9]+}/members/{userID:[0-9]+}", s.handleRemoveMember).Methods(http.MethodDelete)
	private.HandleFunc("/companies/{id:[0-9]+}/invites", s.handleCreateInvite).Methods(http.MethodPost)
	private.HandleFunc("/companies/{id:[0-9]+}/invites", s.handleListInvites).Methods(http.MethodGet)
	private.HandleFunc("/companies/{id:[0-9]+}/projects", s.handleListCompanyProjects).Methods(http.MethodGet)

	private.HandleFunc("/companies/{id:[0-9]+}/access-requests", s.handleRequestAccess).Methods(http.MethodPost)
	private.HandleFunc("/companies/{id:[0-9]+}/access-requests", s.handleListAccessRequests).Methods(http.MethodGet)
	private.HandleFunc("/companies/{id:[0-9]+}/access-requests/{userID:[0-9]+}/review", s.handleReviewAccess).Methods(http.MethodPost)

	private.HandleFunc("/companies/{id:[0-9]+}/canny/sync", s.handleCannySync).Methods(http.MethodPost)
	private.HandleFunc("/companies/{id:[0-9]+}/canny/boards", s.handleCannyBoards).Methods(http.MethodGet)
	private.HandleFunc("/companies/{id:[0-9]+}/canny/posts", s.handleCannyPosts).Methods(http.MethodGet)
	private.HandleFunc("/companies/{id:[0-9]+}/canny/posts/{postID}/link", s.handleCannyLinkPost).Methods(http.MethodPost)

	private.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	private.HandleFunc("/projects/{id:[0-9]+}", s.handleEditProject).Methods(http.MethodPatch)
	private.HandleFunc("/projects/{id:[0-9]+}/publish", s.handlePublishProject).Methods(http.MethodPost)
	private.HandleFunc("/projects/{id:[0-9]+}/cancel", s.handleCancelProject).Methods(http.MethodPost)
	private.HandleFunc("/projects/{id:[0-9]+}/complete", s.handleCompleteProject).Methods(http.MethodPost)
	private.HandleFunc("/projects/{id:[0-9]+}/visibility", s.handleSetVisibility).Methods(http.MethodPut)

	private.HandleFunc("/projects/{id:[0-9]+}/options", s.handleAddPledgeOption).Methods(http.MethodPost)
	private.HandleFunc("/options/{id:[0-9]+}", s.handleUpdatePledgeOption).Methods(http.MethodPut)
	private.HandleFunc("/options/{id:[0-9]+}", s.handleDeletePledgeOption).Methods(http.MethodDelete)

	private.Handle("/projects/{id:[0-9]+}/pledges",
		checkoutLimit(http.HandlerFunc(s.handleCreatePledge))).Methods(http.MethodPost)
	private.HandleFunc("/projects/{id:[0-9]+}/pledges", s.handleListProjectPledges).Methods(http.MethodGet)
	private.HandleFunc("/me/pledges", s.handleListMyPledges).Methods(http.MethodGet)

	return r
}

// pathID parses a numeric mux path variable.
func pathID(r *http.Request, name string) (int32, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}

// pageParams reads page/page_size query parameters with defaults.
func pageParams(r *http.Request) (int32, int32) {
	page := int32(1)
	pageSize := int32(20)
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v > 0 {
			page = int32(v)
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 32); err == nil && v > 0 && v <= 100 {
			pageSize = int32(v)
		}
	}
	return page, pageSize
}
