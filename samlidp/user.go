package samlidp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/zenazn/goji/web"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillauth/samlbridge"
)

// User is a stored account. The attributes here end up in the assertions
// issued for the user.
type User struct {
	Email             string   `json:"email"`
	PlaintextPassword *string  `json:"password,omitempty"` // not stored
	HashedPassword    []byte   `json:"hashed_password,omitempty"`
	Roles             []string `json:"roles,omitempty"`
}

// Verify checks username and password against the user store. Unknown user
// and wrong password are indistinguishable to the caller.
func (s *Server) Verify(username, password string) (*samlbridge.Identity, error) {
	user := User{}
	if err := s.Store.Get(fmt.Sprintf("/users/%s", username), &user); err != nil {
		return nil, samlbridge.ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)) != nil {
		return nil, samlbridge.ErrBadCredentials
	}
	return &samlbridge.Identity{Email: user.Email, Roles: user.Roles}, nil
}

// StoreUser hashes the plaintext password, if present, and persists the
// user keyed by email.
func (s *Server) StoreUser(user User) error {
	if user.PlaintextPassword != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*user.PlaintextPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.HashedPassword = hashed
	}
	user.PlaintextPassword = nil
	return s.Store.Put(fmt.Sprintf("/users/%s", user.Email), &user)
}

func (s *Server) HandleListUsers(_ web.C, w http.ResponseWriter, _ *http.Request) {
	users, err := s.Store.List("/users/")
	if err != nil {
		s.logger.WithError(err).Error("cannot list users")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(struct {
		Users []string `json:"users"`
	}{Users: users})
}

func (s *Server) HandleGetUser(c web.C, w http.ResponseWriter, r *http.Request) {
	user := User{}
	err := s.Store.Get(fmt.Sprintf("/users/%s", c.URLParams["id"]), &user)
	if err == ErrNotFound {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("cannot fetch user")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	user.HashedPassword = nil
	json.NewEncoder(w).Encode(user)
}

func (s *Server) HandlePutUser(c web.C, w http.ResponseWriter, r *http.Request) {
	user := User{}
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	user.Email = c.URLParams["id"]

	if user.PlaintextPassword == nil {
		existing := User{}
		err := s.Store.Get(fmt.Sprintf("/users/%s", user.Email), &existing)
		switch err {
		case nil:
			user.HashedPassword = existing.HashedPassword
		case ErrNotFound:
			// new user without a password cannot authenticate
		default:
			s.logger.WithError(err).Error("cannot fetch user")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	if err := s.StoreUser(user); err != nil {
		s.logger.WithError(err).Error("cannot store user")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleDeleteUser(c web.C, w http.ResponseWriter, _ *http.Request) {
	if err := s.Store.Delete(fmt.Sprintf("/users/%s", c.URLParams["id"])); err != nil {
		s.logger.WithError(err).Error("cannot delete user")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
