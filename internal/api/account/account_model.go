package account

// RegisterRequest is the self-service registration body.
type RegisterRequest struct {
	Handle          string `json:"handle"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Code            string `json:"code"`
}

// LoginRequest is the login body.
type LoginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// UpdatePasswordRequest carries a password change for the logged-in account.
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// AddParams are the fields an administrator supplies when creating an
// account directly. Handle, Password, Role and Status are mandatory.
type AddParams struct {
	Username  string `json:"username"`
	Handle    string `json:"handle"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatar_url"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Status    *int   `json:"status"`
	Role      string `json:"role"`
	Code      string `json:"code"`
}

// UpdateParams are the mergeable fields of an account. Nil pointers mean
// "leave unchanged"; the repository only writes the supplied fields.
// Password, when present, must already be encoded by the service.
type UpdateParams struct {
	Username  *string `json:"username"`
	Handle    *string `json:"handle"`
	Password  *string `json:"password"`
	AvatarURL *string `json:"avatar_url"`
	Gender    *string `json:"gender"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Status    *int    `json:"status"`
	Role      *string `json:"role"`
	Code      *string `json:"code"`
}

// UpdateOwnParams are the fields an account may change on itself. The
// target identifier always comes from the session, never from the body.
type UpdateOwnParams struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Gender    *string `json:"gender"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
}

// UpdateRequest is the admin update body: a target identifier plus the
// fields to merge.
type UpdateRequest struct {
	ID int64 `json:"id"`
	UpdateParams
}

// DeleteRequest identifies the account to soft-delete.
type DeleteRequest struct {
	ID int64 `json:"id"`
}

// SearchCriteria narrows an admin search. Every supplied criterion is
// ANDed: substring match for the text fields, exact match for status,
// role, code and gender, substring match for the timestamp fields.
type SearchCriteria struct {
	Username   string `json:"username"`
	Handle     string `json:"handle"`
	Gender     string `json:"gender"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Status     *int   `json:"status"`
	Role       string `json:"role"`
	Code       string `json:"code"`
	CreateTime string `json:"create_time"`
	UpdateTime string `json:"update_time"`
}
