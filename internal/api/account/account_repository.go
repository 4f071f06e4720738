package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shier/usercenter/internal/types"
)

// PgxPool is the subset of pgxpool.Pool the repository uses. Declared as an
// interface so tests can substitute pgxmock.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ AccountRepo = (*PostgresAccountRepo)(nil)

// AccountRepo is the persistence contract for accounts. Every read excludes
// soft-deleted rows. Insert maps a unique-constraint violation on the handle
// or code to types.ErrConflict; that constraint, not the service's existence
// checks, is the authoritative duplicate guard.
type AccountRepo interface {
	Insert(ctx context.Context, a *types.Account) (int64, error)
	FindByID(ctx context.Context, id int64) (*types.Account, error)
	FindByHandleAndCredential(ctx context.Context, handle, credential string) (*types.Account, error)
	CountByHandle(ctx context.Context, handle string) (int64, error)
	CountByCode(ctx context.Context, code string) (int64, error)
	Search(ctx context.Context, criteria SearchCriteria) ([]types.Account, error)
	Update(ctx context.Context, id int64, params UpdateParams) (int64, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// PostgresAccountRepo implements AccountRepo on top of a pgx connection pool.
type PostgresAccountRepo struct {
	logger *slog.Logger
	pgpool PgxPool
}

func NewPostgresAccountRepo(pgpool PgxPool, logger *slog.Logger) *PostgresAccountRepo {
	return &PostgresAccountRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const accountColumns = `id, username, handle, password, avatar_url, gender, phone, email,
	       status, role, code, created_at, updated_at, is_deleted`

func scanAccount(row pgx.Row, a *types.Account) error {
	return row.Scan(&a.ID, &a.Username, &a.Handle, &a.Password, &a.AvatarURL,
		&a.Gender, &a.Phone, &a.Email, &a.Status, &a.Role, &a.Code,
		&a.CreatedAt, &a.UpdatedAt, &a.IsDeleted)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Insert persists a new account and returns its store-assigned identifier.
func (r *PostgresAccountRepo) Insert(ctx context.Context, a *types.Account) (int64, error) {
	var id int64
	err := r.pgpool.QueryRow(ctx,
		`INSERT INTO accounts (username, handle, password, avatar_url, gender, phone, email, status, role, code)
	         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	         RETURNING id`,
		a.Username, a.Handle, a.Password, a.AvatarURL, a.Gender, a.Phone,
		a.Email, a.Status, a.Role, a.Code).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("handle or code already taken: %w", types.ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}
	return id, nil
}

// FindByID retrieves a live account by identifier.
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id int64) (*types.Account, error) {
	var a types.Account
	err := scanAccount(r.pgpool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND NOT is_deleted`, id), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query account by id: %w", err)
	}
	return &a, nil
}

// FindByHandleAndCredential retrieves the live account whose handle and
// stored credential both match exactly. Used by authentication and by the
// old-password check on password change.
func (r *PostgresAccountRepo) FindByHandleAndCredential(ctx context.Context, handle, credential string) (*types.Account, error) {
	var a types.Account
	err := scanAccount(r.pgpool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE handle = $1 AND password = $2 AND NOT is_deleted`,
		handle, credential), &a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no account matches handle and credential: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query account by credential: %w", err)
	}
	return &a, nil
}

// CountByHandle counts live accounts with the given handle.
func (r *PostgresAccountRepo) CountByHandle(ctx context.Context, handle string) (int64, error) {
	var count int64
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE handle = $1 AND NOT is_deleted`, handle).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts by handle: %w", err)
	}
	return count, nil
}

// CountByCode counts live accounts with the given account code.
func (r *PostgresAccountRepo) CountByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE code = $1 AND NOT is_deleted`, code).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts by code: %w", err)
	}
	return count, nil
}

// Search returns live accounts matching the criteria, newest first. Text
// fields match by substring, status/role/code/gender by equality, and the
// timestamp criteria by substring over the text form of the column. The
// gender filter is only applied alongside a username filter, and timestamp
// substring matching is intentionally loose; both follow the documented
// search contract.
func (r *PostgresAccountRepo) Search(ctx context.Context, criteria SearchCriteria) ([]types.Account, error) {
	l := r.logger.With(slog.String("method", "Search"))

	conditions := []string{"NOT is_deleted"}
	var args []any
	argID := 1

	like := func(column, value string) {
		conditions = append(conditions, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", column, argID))
		args = append(args, value)
		argID++
	}
	eq := func(column string, value any) {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if !isBlank(criteria.Username) {
		like("username", criteria.Username)
		// gender is only honored together with a username criterion
		if !isBlank(criteria.Gender) {
			eq("gender", criteria.Gender)
		}
	}
	if !isBlank(criteria.Handle) {
		like("handle", criteria.Handle)
	}
	if !isBlank(criteria.Phone) {
		like("phone", criteria.Phone)
	}
	if !isBlank(criteria.Email) {
		like("email", criteria.Email)
	}
	if criteria.Status != nil {
		eq("status", *criteria.Status)
	}
	if !isBlank(criteria.Role) {
		eq("role", criteria.Role)
	}
	if !isBlank(criteria.Code) {
		eq("code", criteria.Code)
	}
	if !isBlank(criteria.CreateTime) {
		like("created_at::text", criteria.CreateTime)
	}
	if !isBlank(criteria.UpdateTime) {
		like("updated_at::text", criteria.UpdateTime)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY id`

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Account search query failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to search accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.Account
	for rows.Next() {
		var a types.Account
		if err := scanAccount(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account rows: %w", err)
	}
	return accounts, nil
}

// Update merges the supplied fields onto the account and returns the number
// of rows affected. A unique violation on a new handle or code surfaces as
// types.ErrConflict.
func (r *PostgresAccountRepo) Update(ctx context.Context, id int64, params UpdateParams) (int64, error) {
	var setClauses []string
	var args []any
	argID := 1

	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if params.Username != nil {
		set("username", *params.Username)
	}
	if params.Handle != nil {
		set("handle", *params.Handle)
	}
	if params.Password != nil {
		set("password", *params.Password)
	}
	if params.AvatarURL != nil {
		set("avatar_url", *params.AvatarURL)
	}
	if params.Gender != nil {
		set("gender", *params.Gender)
	}
	if params.Phone != nil {
		set("phone", *params.Phone)
	}
	if params.Email != nil {
		set("email", *params.Email)
	}
	if params.Status != nil {
		set("status", *params.Status)
	}
	if params.Role != nil {
		set("role", *params.Role)
	}
	if params.Code != nil {
		set("code", *params.Code)
	}

	if len(setClauses) == 0 {
		return 0, fmt.Errorf("no fields to update: %w", types.ErrInvalidParams)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d AND NOT is_deleted`,
		strings.Join(setClauses, ", "), argID)
	args = append(args, id)

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("handle or code already taken: %w", types.ErrConflict)
		}
		return 0, fmt.Errorf("failed to update account: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SoftDelete marks the account deleted, retaining the row. Returns false if
// no live row matched.
func (r *PostgresAccountRepo) SoftDelete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE accounts SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return false, fmt.Errorf("failed to soft-delete account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
