package apifake

import (
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User is an account held by the fake API. Its JSON form is the profile
// payload returned by GET /profile/.
type User struct {
	ID              int64   `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	PasswordHash    string  `json:"-"`
	PhoneNumber     *string `json:"phone_number"`
	IsBusinessOwner bool    `json:"is_business_owner"`
	IsCustomer      bool    `json:"is_customer"`
	IsStaff         bool    `json:"is_staff"`
	IsSuperuser     bool    `json:"is_superuser"`
	ReviewCount     int     `json:"review_count"`
	BusinessCount   int     `json:"business_count"`
}

const minPasswordLength = 8

func hashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type signupBody struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm"`
	PhoneNumber     *string `json:"phone_number"`
}

// validate mirrors the field errors a Django REST serializer produces.
func (b signupBody) validate() map[string][]string {
	errs := make(map[string][]string)
	add := func(field, msg string) {
		errs[field] = append(errs[field], msg)
	}

	if strings.TrimSpace(b.Username) == "" {
		add("username", "This field may not be blank.")
	}
	if strings.TrimSpace(b.Email) == "" {
		add("email", "This field may not be blank.")
	} else if _, err := mail.ParseAddress(b.Email); err != nil {
		add("email", "Enter a valid email address.")
	}
	if b.Password == "" {
		add("password", "This field may not be blank.")
	} else if len(b.Password) < minPasswordLength {
		add("password", "This password is too short. It must contain at least 8 characters.")
	}
	if b.PasswordConfirm == "" {
		add("password_confirm", "This field may not be blank.")
	} else if b.Password != "" && b.Password != b.PasswordConfirm {
		add("password", "Password fields didn't match.")
	}
	return errs
}
