package types

import "time"

// Account role tags.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account status values.
const (
	StatusNormal = 0
	StatusBanned = 1
)

// Account is the persisted account record. Password always holds the
// encoded credential, never plaintext. Soft-deleted rows keep their data
// but are excluded from every normal lookup.
type Account struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Handle    string    `json:"handle"`
	Password  string    `json:"-"`
	AvatarURL string    `json:"avatar_url"`
	Gender    string    `json:"gender"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Status    int       `json:"status"`
	Role      string    `json:"role"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"-"`
}

// SafeAccount is the desensitized view of an Account: every field except
// the stored credential. It is what crosses the service boundary and what
// is held in the session login state.
type SafeAccount struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Handle    string    `json:"handle"`
	AvatarURL string    `json:"avatar_url"`
	Gender    string    `json:"gender"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Status    int       `json:"status"`
	Role      string    `json:"role"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Desensitize projects an account to its public-safe view. nil in, nil out.
func Desensitize(a *Account) *SafeAccount {
	if a == nil {
		return nil
	}
	return &SafeAccount{
		ID:        a.ID,
		Username:  a.Username,
		Handle:    a.Handle,
		AvatarURL: a.AvatarURL,
		Gender:    a.Gender,
		Phone:     a.Phone,
		Email:     a.Email,
		Status:    a.Status,
		Role:      a.Role,
		Code:      a.Code,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Response is the generic JSON envelope for simple success/error results.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
