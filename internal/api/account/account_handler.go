package account

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shier/usercenter/internal/api"
	"github.com/shier/usercenter/internal/types"
)

// SessionCookieName carries the opaque session identifier. The cookie is
// issued here, at the transport layer; the service never sees cookies.
const SessionCookieName = "UC_SESSION"

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	CurrentUser(w http.ResponseWriter, r *http.Request)
	UpdatePassword(w http.ResponseWriter, r *http.Request)
	UpdateMy(w http.ResponseWriter, r *http.Request)
	Search(w http.ResponseWriter, r *http.Request)
	Add(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	accountService AccountService
	logger         *slog.Logger
}

// NewHandlerImpl creates a new account HandlerImpl instance.
func NewHandlerImpl(accountService AccountService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		accountService: accountService,
		logger:         logger,
	}
}

// statusForError maps domain error kinds to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInvalidCredential),
		errors.Is(err, types.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrNoPermission):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// sessionID returns the caller's session identifier, or "" if none was sent.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// ensureSessionID returns the caller's session identifier, issuing a fresh
// one as a cookie when the request carried none.
func ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	if sid := sessionID(r); sid != "" {
		return sid
	}
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// Register godoc
// @Summary      Register Account
// @Description  Creates a new account from handle, password, confirmation and code.
// @Tags         Account
// @Router       /account/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.accountService.Register(ctx, req.Handle, req.Password, req.ConfirmPassword, req.Code)
	if err != nil {
		l.WarnContext(ctx, "Registration rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]any{"id": id})
}

// Login godoc
// @Summary      Login
// @Description  Authenticates an account and stores the login state in the session.
// @Tags         Account
// @Router       /account/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sid := ensureSessionID(w, r)
	safe, err := h.accountService.Login(ctx, req.Handle, req.Password, sid)
	if err != nil {
		l.WarnContext(ctx, "Login rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, safe)
}

// Logout godoc
// @Summary      Logout
// @Description  Drops the session's login state. Idempotent.
// @Tags         Account
// @Router       /account/logout [post]
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.accountService.Logout(ctx, sessionID(r)); err != nil {
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Logged out"})
}

// CurrentUser godoc
// @Summary      Current Account
// @Description  Returns the logged-in account, re-read from the store.
// @Tags         Account
// @Router       /account/current [get]
func (h *HandlerImpl) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	safe, err := h.accountService.CurrentUser(ctx, sessionID(r))
	if err != nil {
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, safe)
}

// UpdatePassword godoc
// @Summary      Change Own Password
// @Tags         Account
// @Router       /account/update/password [post]
func (h *HandlerImpl) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdatePassword"))

	var req UpdatePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.accountService.UpdatePassword(ctx, sessionID(r), req.OldPassword, req.NewPassword)
	if err != nil {
		l.WarnContext(ctx, "Password change rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: ok, Message: "Password updated"})
}

// UpdateMy godoc
// @Summary      Update Own Profile
// @Tags         Account
// @Router       /account/update/my [post]
func (h *HandlerImpl) UpdateMy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateMy"))

	var params UpdateOwnParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.accountService.UpdateOwn(ctx, sessionID(r), params)
	if err != nil {
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: ok, Message: "Profile updated"})
}

// Search godoc
// @Summary      Search Accounts (admin)
// @Tags         Account
// @Router       /account/search [get]
func (h *HandlerImpl) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	criteria := SearchCriteria{
		Username:   q.Get("username"),
		Handle:     q.Get("handle"),
		Gender:     q.Get("gender"),
		Phone:      q.Get("phone"),
		Email:      q.Get("email"),
		Role:       q.Get("role"),
		Code:       q.Get("code"),
		CreateTime: q.Get("create_time"),
		UpdateTime: q.Get("update_time"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "status must be an integer")
			return
		}
		criteria.Status = &status
	}

	accounts, err := h.accountService.Search(ctx, sessionID(r), criteria)
	if err != nil {
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, accounts)
}

// Add godoc
// @Summary      Add Account (admin)
// @Tags         Account
// @Router       /account/add [post]
func (h *HandlerImpl) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Add"))

	var params AddParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.accountService.Add(ctx, sessionID(r), params)
	if err != nil {
		l.WarnContext(ctx, "Admin add rejected", slog.Any("error", err))
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]any{"id": id})
}

// Update godoc
// @Summary      Update Account (admin)
// @Tags         Account
// @Router       /account/update [post]
func (h *HandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Update"))

	var req UpdateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.accountService.Update(ctx, sessionID(r), req.ID, req.UpdateParams)
	if err != nil {
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: ok, Message: "Account updated"})
}

// Delete godoc
// @Summary      Soft-Delete Account (admin)
// @Tags         Account
// @Router       /account/delete [post]
func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Delete"))

	var req DeleteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.accountService.Delete(ctx, sessionID(r), req.ID)
	if err != nil {
		api.ErrorResponse(w, r, statusForError(err), err.Error())
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: ok, Message: "Account deleted"})
}
