// Package handler exposes the identity HTTP surface: registration, login,
// logout, profile management and the admin verification routes.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ballotbox/internal/identity/models"
	"ballotbox/internal/identity/service"
	"ballotbox/internal/identity/store"
	"ballotbox/internal/platform/filestore"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
	"ballotbox/pkg/platform/httputil"
	"ballotbox/pkg/requestcontext"
)

// maxUploadBytes caps a multipart profile submission (photo + document).
const maxUploadBytes = 10 << 20

// IdentityService is the slice of the identity service the handler needs.
type IdentityService interface {
	Register(ctx context.Context, params service.RegisterParams) (*models.Account, error)
	Authenticate(ctx context.Context, email, password, roleHint string) (string, *models.Account, error)
	Logout(ctx context.Context, rawToken string) error
	SubmitProfile(ctx context.Context, accountID id.AccountID, profile models.Profile) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID id.AccountID, params service.UpdateProfileParams) (*models.Account, error)
	GetAccount(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	ListAccounts(ctx context.Context, filter store.Filter) ([]*models.Account, error)
	DecideVerification(ctx context.Context, adminID, accountID id.AccountID, decision service.Decision) (*models.Account, error)
}

// Handler serves the identity routes.
type Handler struct {
	identity IdentityService
	files    filestore.Store
	logger   *slog.Logger
}

func New(identity IdentityService, files filestore.Store, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, files: files, logger: logger}
}

// RegisterPublic mounts the routes that need no bearer token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

// RegisterAuthenticated mounts the routes behind RequireAuth.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
}

// RegisterVoter mounts the profile routes behind RequireAuth+RequireVoter.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Post("/profile/complete", h.handleCompleteProfile)
	r.Put("/profile/update", h.handleUpdateProfile)
	r.Get("/profile/status", h.handleProfileStatus)
}

// RegisterAdmin mounts the user administration routes behind RequireAdmin.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/users", h.handleListUsers)
	r.Get("/admin/users/{id}", h.handleGetUser)
	r.Put("/admin/users/{id}/verify", h.handleVerifyUser)
}

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	VoterID   string `json:"voterId"`
	AdminCode string `json:"adminCode"`
}

func (r *registerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "name, email and password are required")
	}
	return nil
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.identity.Register(ctx, service.RegisterParams{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		AdminCode: req.AdminCode,
		VoterID:   req.VoterID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, accountSummary(account))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r *loginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, account, err := h.identity.Authenticate(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  accountSummary(account),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.identity.Logout(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := requestcontext.AccountID(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}

	age, err := strconv.Atoi(r.FormValue("age"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "age must be a number"))
		return
	}

	photoRef, err := h.saveUpload(r, "photo", "photos")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	documentRef, err := h.saveUpload(r, "document", "documents")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.identity.SubmitProfile(ctx, accountID, models.Profile{
		FullName:    r.FormValue("name"),
		Age:         age,
		Address:     r.FormValue("address"),
		PhotoRef:    photoRef,
		DocumentRef: documentRef,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, accountSummary(account))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := requestcontext.AccountID(ctx)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expected multipart form data"))
		return
	}

	var params service.UpdateProfileParams
	if raw := r.FormValue("age"); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "age must be a number"))
			return
		}
		params.Age = &age
	}
	if address := r.FormValue("address"); address != "" {
		params.Address = &address
	}
	if _, _, err := r.FormFile("photo"); err == nil {
		photoRef, err := h.saveUpload(r, "photo", "photos")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		params.PhotoRef = &photoRef
	}

	account, err := h.identity.UpdateProfile(ctx, accountID, params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, accountSummary(account))
}

func (h *Handler) handleProfileStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := h.identity.GetAccount(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"is_profile_complete":  account.ProfileComplete,
		"is_verified_by_admin": account.VerifiedByAdmin,
		"state":                account.State(),
		"voter_id":             account.VoterID,
	})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := store.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	accounts, err := h.identity.ListAccounts(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	users := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, accountDetail(account))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.identity.GetAccount(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accountDetail(account))
}

type verifyRequest struct {
	Action string `json:"action"`
}

func (h *Handler) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	accountID, err := id.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	decision, err := service.ParseDecision(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	account, err := h.identity.DecideVerification(ctx, requestcontext.AccountID(ctx), accountID, decision)
	if err != nil {
		h.logger.WarnContext(ctx, "verification decision failed",
			"request_id", requestID,
			"subject_id", accountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, accountDetail(account))
}

// saveUpload stores one multipart file and returns its opaque reference.
// A missing part is a validation error since both uploads are required on
// profile completion.
func (h *Handler) saveUpload(r *http.Request, field, kind string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeValidation, "%s upload is required", field)
	}
	defer file.Close()

	ref, err := h.files.Save(kind, header.Filename, io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store upload")
	}
	return ref, nil
}

func accountSummary(account *models.Account) map[string]any {
	return map[string]any{
		"id":                   account.ID,
		"name":                 account.Name,
		"email":                account.Email,
		"role":                 account.Role,
		"voter_id":             account.VoterID,
		"is_profile_complete":  account.ProfileComplete,
		"is_verified_by_admin": account.VerifiedByAdmin,
	}
}

func accountDetail(account *models.Account) map[string]any {
	detail := accountSummary(account)
	detail["state"] = account.State()
	detail["created_at"] = account.CreatedAt
	if account.Profile != nil {
		detail["profile"] = account.Profile
	}
	return detail
}
