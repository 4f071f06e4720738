package account

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shier/usercenter/internal/types"
)

const (
	minHandleLength   = 4
	minPasswordLength = 8
	maxCodeLength     = 15
)

// forbiddenHandleChars is the fixed set of characters a handle may not
// contain: shell/meta punctuation plus the full-width CJK equivalents.
const forbiddenHandleChars = "`~!@#$%^&*()+=|{}':;,\\[].<>/?" +
	"～！＠＃￥％…＆＊（）—＋｜｛｝【】‘’“”；：。，、？"

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// validateHandleChars rejects handles containing any forbidden character.
func validateHandleChars(handle string) error {
	if strings.ContainsAny(handle, forbiddenHandleChars) {
		return fmt.Errorf("handle contains special characters: %w", types.ErrInvalidParams)
	}
	return nil
}

// validateRegistration checks the full registration rule set, in order:
// non-blank, handle length, password lengths, code length, forbidden
// characters, password confirmation.
func validateRegistration(handle, password, confirm, code string) error {
	if isBlank(handle) || isBlank(password) || isBlank(confirm) || isBlank(code) {
		return fmt.Errorf("required parameters are blank: %w", types.ErrInvalidParams)
	}
	if utf8.RuneCountInString(handle) < minHandleLength {
		return fmt.Errorf("handle is shorter than %d characters: %w", minHandleLength, types.ErrInvalidParams)
	}
	if utf8.RuneCountInString(password) < minPasswordLength || utf8.RuneCountInString(confirm) < minPasswordLength {
		return fmt.Errorf("password is shorter than %d characters: %w", minPasswordLength, types.ErrInvalidParams)
	}
	if utf8.RuneCountInString(code) > maxCodeLength {
		return fmt.Errorf("account code is longer than %d characters: %w", maxCodeLength, types.ErrInvalidParams)
	}
	if err := validateHandleChars(handle); err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("password and confirmation do not match: %w", types.ErrInvalidParams)
	}
	return nil
}

// validateLogin checks the login subset of the rules.
func validateLogin(handle, password string) error {
	if isBlank(handle) || isBlank(password) {
		return fmt.Errorf("handle and password must not be blank: %w", types.ErrInvalidParams)
	}
	if utf8.RuneCountInString(handle) < minHandleLength {
		return fmt.Errorf("handle is shorter than %d characters: %w", minHandleLength, types.ErrInvalidParams)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("password is shorter than %d characters: %w", minPasswordLength, types.ErrInvalidParams)
	}
	return validateHandleChars(handle)
}
