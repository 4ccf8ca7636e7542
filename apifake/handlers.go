package apifake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("apifake: writing response")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeTokenNotValid(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": detail,
		"code":   "token_not_valid",
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("JSON parse error")
	}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	fieldErrs := make(map[string][]string)
	if strings.TrimSpace(body.Username) == "" {
		fieldErrs["username"] = []string{"This field may not be blank."}
	}
	if body.Password == "" {
		fieldErrs["password"] = []string{"This field may not be blank."}
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	user, err := s.authenticate(body.Username, body.Password)
	if err != nil {
		log.Debug().Err(err).Str("username", body.Username).Msg("apifake: login rejected")
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	access, err := s.IssueAccessToken(user.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	refresh, err := s.IssueRefreshToken(user.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field may not be blank."}})
		return
	}

	userID, err := s.verifyToken(body.Refresh, tokenTypeRefresh)
	if err != nil {
		log.Debug().Err(err).Msg("apifake: refresh rejected")
		writeTokenNotValid(w, "Token is invalid or expired")
		return
	}

	access, err := s.IssueAccessToken(userID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}
	resp := map[string]string{"access": access}
	if s.rotateRefresh {
		refresh, err := s.IssueRefreshToken(userID)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
			return
		}
		s.RevokeToken(body.Refresh)
		resp["refresh"] = refresh
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body signupBody
	if err := decodeBody(r, &body); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	fieldErrs := body.validate()
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	hash, err := hashPassword(body.Password, s.passwordCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		return
	}

	s.mu.Lock()
	fieldErrs = s.conflictsLocked(body.Username, body.Email)
	var user *User
	if len(fieldErrs) == 0 {
		user = s.insertLocked(User{
			Username:     body.Username,
			Email:        body.Email,
			PasswordHash: hash,
			PhoneNumber:  body.PhoneNumber,
			IsCustomer:   true,
		})
	}
	s.mu.Unlock()

	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"phone_number": user.PhoneNumber,
	})
}

// requireAuth resolves the bearer token to a user id.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		userID, err := s.verifyToken(token, tokenTypeAccess)
		if err != nil {
			log.Debug().Err(err).Msg("apifake: access token rejected")
			writeTokenNotValid(w, "Given token not valid for any token type")
			return
		}
		if _, ok := s.User(userID); !ok {
			writeDetail(w, http.StatusUnauthorized, "User not found")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

func currentUser(s *Server, r *http.Request) User {
	id, _ := r.Context().Value(userIDKey).(int64)
	u, _ := s.User(id)
	return u
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(s, r))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	u := currentUser(s, r)
	dashboard := map[string]any{
		"username":       u.Username,
		"review_count":   u.ReviewCount,
		"business_count": u.BusinessCount,
		"recent_reviews": []any{},
	}
	if u.IsBusinessOwner {
		dashboard["businesses"] = []any{}
	}
	if u.IsStaff || u.IsSuperuser {
		s.mu.RLock()
		dashboard["total_users"] = len(s.users)
		s.mu.RUnlock()
	}
	writeJSON(w, http.StatusOK, dashboard)
}
