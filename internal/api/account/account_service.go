package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shier/usercenter/app/metrics"
	"github.com/shier/usercenter/internal/types"
)

// Ensure implementation satisfies the interface
var _ AccountService = (*AccountServiceImpl)(nil)

// AccountService is the business logic contract for account operations.
// Operations that read or write login state take the caller's opaque
// session identifier; the transport layer owns how that identifier is
// issued and carried.
type AccountService interface {
	// Register creates a self-service account and returns its identifier.
	Register(ctx context.Context, handle, password, confirm, code string) (int64, error)

	// Login authenticates by handle and password, stores the desensitized
	// view as the session's login state and returns it.
	Login(ctx context.Context, handle, password, sessionID string) (*types.SafeAccount, error)

	// CurrentUser re-reads the logged-in account from the store so status
	// changes since login are picked up.
	CurrentUser(ctx context.Context, sessionID string) (*types.SafeAccount, error)

	// Logout drops the session's login state. Logging out twice is not an error.
	Logout(ctx context.Context, sessionID string) error

	// UpdatePassword changes the logged-in account's password after
	// verifying the old one.
	UpdatePassword(ctx context.Context, sessionID, oldPassword, newPassword string) (bool, error)

	// UpdateOwn merges profile fields onto the logged-in account only.
	UpdateOwn(ctx context.Context, sessionID string, params UpdateOwnParams) (bool, error)

	// Search, Add, Update and Delete require the session to resolve to an
	// admin login state.
	Search(ctx context.Context, sessionID string, criteria SearchCriteria) ([]types.SafeAccount, error)
	Add(ctx context.Context, sessionID string, params AddParams) (int64, error)
	Update(ctx context.Context, sessionID string, id int64, params UpdateParams) (bool, error)
	Delete(ctx context.Context, sessionID string, id int64) (bool, error)
}

// AccountServiceImpl provides the implementation for AccountService.
type AccountServiceImpl struct {
	logger   *slog.Logger
	repo     AccountRepo
	sessions SessionStore
	codec    *CredentialCodec
}

// NewAccountService creates a new account service instance.
func NewAccountService(repo AccountRepo, sessions SessionStore, codec *CredentialCodec, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		logger:   logger,
		repo:     repo,
		sessions: sessions,
		codec:    codec,
	}
}

// loginState resolves the session's stored login state. It fails with
// types.ErrNotAuthenticated when the session holds nothing usable.
func (s *AccountServiceImpl) loginState(sessionID string) (*types.SafeAccount, error) {
	v, ok := s.sessions.Get(sessionID, loginStateKey)
	if !ok {
		return nil, types.ErrNotAuthenticated
	}
	state, ok := v.(*types.SafeAccount)
	if !ok || state == nil || state.ID <= 0 {
		return nil, types.ErrNotAuthenticated
	}
	return state, nil
}

// requireAdmin fails with types.ErrNoPermission unless the session's login
// state carries the admin role. A missing session and a non-admin session
// fail identically.
func (s *AccountServiceImpl) requireAdmin(sessionID string) error {
	state, err := s.loginState(sessionID)
	if err != nil {
		return types.ErrNoPermission
	}
	if state.Role != types.RoleAdmin {
		return types.ErrNoPermission
	}
	return nil
}

// Register validates the registration input, checks handle and code
// uniqueness among live accounts and persists the new account with the
// default role and normal status.
func (s *AccountServiceImpl) Register(ctx context.Context, handle, password, confirm, code string) (int64, error) {
	l := s.logger.With(slog.String("method", "Register"), slog.String("handle", handle))

	if err := validateRegistration(handle, password, confirm, code); err != nil {
		return 0, err
	}

	count, err := s.repo.CountByHandle(ctx, handle)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check handle uniqueness", slog.Any("error", err))
		return 0, fmt.Errorf("error checking handle uniqueness: %w", err)
	}
	if count > 0 {
		return 0, fmt.Errorf("handle already exists: %w", types.ErrConflict)
	}

	count, err = s.repo.CountByCode(ctx, code)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check code uniqueness", slog.Any("error", err))
		return 0, fmt.Errorf("error checking code uniqueness: %w", err)
	}
	if count > 0 {
		return 0, fmt.Errorf("account code already exists: %w", types.ErrConflict)
	}

	id, err := s.repo.Insert(ctx, &types.Account{
		Handle:   handle,
		Password: s.codec.Encode(password),
		Code:     code,
		Role:     types.RoleUser,
		Status:   types.StatusNormal,
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to persist new account", slog.Any("error", err))
		return 0, fmt.Errorf("error persisting account: %w", err)
	}

	metrics.Get().RegisterTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Account registered", slog.Int64("accountID", id))
	return id, nil
}

// Login authenticates by exact handle + encoded credential match. The
// failure shape never distinguishes an unknown handle from a wrong password.
func (s *AccountServiceImpl) Login(ctx context.Context, handle, password, sessionID string) (*types.SafeAccount, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("handle", handle))

	if err := validateLogin(handle, password); err != nil {
		return nil, err
	}

	a, err := s.repo.FindByHandleAndCredential(ctx, handle, s.codec.Encode(password))
	if err != nil {
		metrics.Get().LoginFailuresTotal.Add(ctx, 1)
		if errors.Is(err, types.ErrNotFound) {
			l.InfoContext(ctx, "Login rejected, handle and credential do not match")
			return nil, types.ErrInvalidCredential
		}
		l.ErrorContext(ctx, "Login lookup failed", slog.Any("error", err))
		return nil, fmt.Errorf("error looking up account: %w", err)
	}

	safe := types.Desensitize(a)
	s.sessions.Set(sessionID, loginStateKey, safe)

	metrics.Get().LoginTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Login successful", slog.Int64("accountID", safe.ID))
	return safe, nil
}

// CurrentUser re-resolves the logged-in account by identifier. The session
// becomes invalid once the identifier no longer resolves to a live account.
func (s *AccountServiceImpl) CurrentUser(ctx context.Context, sessionID string) (*types.SafeAccount, error) {
	state, err := s.loginState(sessionID)
	if err != nil {
		return nil, err
	}

	a, err := s.repo.FindByID(ctx, state.ID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotAuthenticated
		}
		return nil, fmt.Errorf("error resolving current account: %w", err)
	}
	return types.Desensitize(a), nil
}

// Logout removes the session's login state unconditionally.
func (s *AccountServiceImpl) Logout(ctx context.Context, sessionID string) error {
	s.sessions.Remove(sessionID, loginStateKey)
	s.logger.DebugContext(ctx, "Session login state removed", slog.String("method", "Logout"))
	return nil
}

// UpdatePassword verifies the old password by exact encoded match, rejects
// a no-op change and persists the new encoded credential.
func (s *AccountServiceImpl) UpdatePassword(ctx context.Context, sessionID, oldPassword, newPassword string) (bool, error) {
	l := s.logger.With(slog.String("method", "UpdatePassword"))

	if isBlank(oldPassword) || isBlank(newPassword) {
		return false, fmt.Errorf("old and new password must not be blank: %w", types.ErrInvalidParams)
	}

	state, err := s.loginState(sessionID)
	if err != nil {
		return false, err
	}

	current, err := s.repo.FindByHandleAndCredential(ctx, state.Handle, s.codec.Encode(oldPassword))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.InfoContext(ctx, "Password change rejected, old password mismatch", slog.Int64("accountID", state.ID))
			return false, types.ErrInvalidCredential
		}
		l.ErrorContext(ctx, "Password verification lookup failed", slog.Any("error", err))
		return false, fmt.Errorf("error verifying old password: %w", err)
	}

	encoded := s.codec.Encode(newPassword)
	if encoded == current.Password {
		return false, fmt.Errorf("new password must differ from the current one: %w", types.ErrInvalidParams)
	}

	rows, err := s.repo.Update(ctx, current.ID, UpdateParams{Password: &encoded})
	if err != nil {
		l.ErrorContext(ctx, "Failed to persist new password", slog.Any("error", err))
		return false, fmt.Errorf("error updating password: %w", err)
	}
	if rows == 0 {
		return false, types.ErrOperationFailed
	}

	l.InfoContext(ctx, "Password updated", slog.Int64("accountID", current.ID))
	return true, nil
}

// UpdateOwn merges fields onto the caller's own record. The target
// identifier comes from the session only, so this path can never touch
// another account.
func (s *AccountServiceImpl) UpdateOwn(ctx context.Context, sessionID string, params UpdateOwnParams) (bool, error) {
	state, err := s.loginState(sessionID)
	if err != nil {
		return false, err
	}

	rows, err := s.repo.Update(ctx, state.ID, UpdateParams{
		Username:  params.Username,
		AvatarURL: params.AvatarURL,
		Gender:    params.Gender,
		Phone:     params.Phone,
		Email:     params.Email,
	})
	if err != nil {
		return false, fmt.Errorf("error updating own profile: %w", err)
	}
	if rows == 0 {
		return false, types.ErrOperationFailed
	}
	return true, nil
}

// Search runs an admin search and desensitizes every returned record.
func (s *AccountServiceImpl) Search(ctx context.Context, sessionID string, criteria SearchCriteria) ([]types.SafeAccount, error) {
	if err := s.requireAdmin(sessionID); err != nil {
		return nil, err
	}

	accounts, err := s.repo.Search(ctx, criteria)
	if err != nil {
		s.logger.ErrorContext(ctx, "Account search failed",
			slog.String("method", "Search"), slog.Any("error", err))
		return nil, fmt.Errorf("error searching accounts: %w", err)
	}

	safe := make([]types.SafeAccount, 0, len(accounts))
	for i := range accounts {
		safe = append(safe, *types.Desensitize(&accounts[i]))
	}
	return safe, nil
}

// Add creates an account on behalf of an administrator. Handle, password,
// role and status are all required.
func (s *AccountServiceImpl) Add(ctx context.Context, sessionID string, params AddParams) (int64, error) {
	l := s.logger.With(slog.String("method", "Add"), slog.String("handle", params.Handle))

	if err := s.requireAdmin(sessionID); err != nil {
		return 0, err
	}
	if isBlank(params.Handle) || isBlank(params.Password) || isBlank(params.Role) || params.Status == nil {
		return 0, fmt.Errorf("handle, password, role and status are required: %w", types.ErrInvalidParams)
	}
	if err := validateHandleChars(params.Handle); err != nil {
		return 0, err
	}

	count, err := s.repo.CountByHandle(ctx, params.Handle)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check handle uniqueness", slog.Any("error", err))
		return 0, fmt.Errorf("error checking handle uniqueness: %w", err)
	}
	if count > 0 {
		return 0, fmt.Errorf("handle already exists: %w", types.ErrConflict)
	}

	id, err := s.repo.Insert(ctx, &types.Account{
		Username:  params.Username,
		Handle:    params.Handle,
		Password:  s.codec.Encode(params.Password),
		AvatarURL: params.AvatarURL,
		Gender:    params.Gender,
		Phone:     params.Phone,
		Email:     params.Email,
		Status:    *params.Status,
		Role:      params.Role,
		Code:      params.Code,
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to persist account", slog.Any("error", err))
		return 0, fmt.Errorf("error persisting account: %w", err)
	}

	l.InfoContext(ctx, "Account added by admin", slog.Int64("accountID", id))
	return id, nil
}

// Update merges admin-supplied fields onto the target account. A supplied
// password is encoded before it replaces the stored credential, and a
// supplied handle is re-checked for forbidden characters. Zero affected
// rows fails loudly.
func (s *AccountServiceImpl) Update(ctx context.Context, sessionID string, id int64, params UpdateParams) (bool, error) {
	l := s.logger.With(slog.String("method", "Update"), slog.Int64("accountID", id))

	if err := s.requireAdmin(sessionID); err != nil {
		return false, err
	}
	if id <= 0 {
		return false, fmt.Errorf("account identifier is required: %w", types.ErrInvalidParams)
	}
	if params.Handle != nil {
		if err := validateHandleChars(*params.Handle); err != nil {
			return false, err
		}
	}
	if params.Password != nil {
		encoded := s.codec.Encode(*params.Password)
		params.Password = &encoded
	}

	rows, err := s.repo.Update(ctx, id, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update account", slog.Any("error", err))
		return false, fmt.Errorf("error updating account: %w", err)
	}
	if rows == 0 {
		return false, fmt.Errorf("account update had no effect: %w", types.ErrOperationFailed)
	}

	l.InfoContext(ctx, "Account updated by admin")
	return true, nil
}

// Delete soft-deletes the target account.
func (s *AccountServiceImpl) Delete(ctx context.Context, sessionID string, id int64) (bool, error) {
	if err := s.requireAdmin(sessionID); err != nil {
		return false, err
	}
	if id <= 0 {
		return false, fmt.Errorf("account identifier must be positive: %w", types.ErrInvalidParams)
	}

	ok, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to soft-delete account",
			slog.String("method", "Delete"), slog.Int64("accountID", id), slog.Any("error", err))
		return false, fmt.Errorf("error deleting account: %w", err)
	}
	if !ok {
		return false, fmt.Errorf("account delete had no effect: %w", types.ErrOperationFailed)
	}

	s.logger.InfoContext(ctx, "Account soft-deleted",
		slog.String("method", "Delete"), slog.Int64("accountID", id))
	return true, nil
}
