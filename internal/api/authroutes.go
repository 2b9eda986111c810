package api

import (
	"log"
	"net/http"

	"github.com/bher20/hausmeister/internal/auth"
	"github.com/bher20/hausmeister/internal/storage"
)

func (s *server) registerAuthRoutes(mux *http.ServeMux) {
	if s.authSvc == nil {
		return
	}

	mux.HandleFunc("POST /api/v1/auth/login", instrument("POST /api/v1/auth/login", s.login))
	mux.Handle("POST /api/v1/auth/register",
		s.protect(auth.ObjectSettings, "write", instrument("POST /api/v1/auth/register", s.register)))
	mux.Handle("GET /api/v1/auth/tokens",
		s.authSvc.Middleware(http.HandlerFunc(s.listTokens)))
	mux.Handle("DELETE /api/v1/auth/tokens/{id}",
		s.authSvc.Middleware(http.HandlerFunc(s.deleteToken)))
}

// login exchanges username/password for a fresh API token.
func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		TokenName string `json:"token_name"`
		ExpiresIn string `json:"expires_in"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.authSvc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r.Pattern, http.StatusUnauthorized, "invalid credentials")
		return
	}

	expiresAt, err := auth.ParseExpiration(req.ExpiresIn)
	if err != nil {
		writeError(w, r.Pattern, http.StatusBadRequest, err.Error())
		return
	}
	name := req.TokenName
	if name == "" {
		name = "login"
	}

	token, raw, err := s.authSvc.CreateToken(r.Context(), user.ID, name, user.Role, expiresAt)
	if err != nil {
		log.Printf("create token failed: %v", err)
		writeError(w, r.Pattern, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      raw,
		"token_id":   token.ID,
		"role":       token.Role,
		"expires_at": token.ExpiresAt,
	})
}

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r.Pattern, http.StatusBadRequest, "username and password are required")
		return
	}
	switch req.Role {
	case auth.RoleAdmin, auth.RoleManager, auth.RoleViewer:
	default:
		writeError(w, r.Pattern, http.StatusBadRequest, "role must be admin, manager or viewer")
		return
	}

	user, err := s.authSvc.Register(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		writeError(w, r.Pattern, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *server) listTokens(w http.ResponseWriter, r *http.Request) {
	token, ok := r.Context().Value(auth.TokenContextKey).(*storage.Token)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tokens, err := s.st.ListTokens(r.Context(), token.UserID)
	if err != nil {
		log.Printf("list tokens failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (s *server) deleteToken(w http.ResponseWriter, r *http.Request) {
	token, ok := r.Context().Value(auth.TokenContextKey).(*storage.Token)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := r.PathValue("id")
	owned, err := s.st.ListTokens(r.Context(), token.UserID)
	if err != nil {
		log.Printf("list tokens failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	for _, t := range owned {
		if t.ID == id {
			if err := s.st.DeleteToken(r.Context(), id); err != nil {
				log.Printf("delete token failed: %v", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, "token not found", http.StatusNotFound)
}
