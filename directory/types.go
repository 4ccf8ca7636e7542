package directory

import "github.com/jrsteele09/go-directory-session/internal/utils"

// LoginRequest accepts either a username or an email in Username.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
}

// UserProfile is the account record returned by GET /profile/.
type UserProfile struct {
	ID              int64   `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	PhoneNumber     *string `json:"phone_number"`
	IsBusinessOwner bool    `json:"is_business_owner"`
	IsCustomer      bool    `json:"is_customer"`
	IsStaff         bool    `json:"is_staff"`
	IsSuperuser     bool    `json:"is_superuser"`
	ReviewCount     int     `json:"review_count"`
	BusinessCount   int     `json:"business_count"`
}

func (p UserProfile) IsAdmin() bool {
	return p.IsStaff || p.IsSuperuser
}

// Phone returns the phone number or an empty string.
func (p UserProfile) Phone() string {
	return utils.Value(p.PhoneNumber)
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}
