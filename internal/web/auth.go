package web

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const sessionName = "invoice2sap_session"

// authEnabled reports whether the shared operator password is set.
// Without it the UI is open, intended for a workstation-local install.
func (s *Server) authEnabled() bool {
	return s.cfg.Auth.PasswordHash != "" && s.sessions != nil
}

func (s *Server) authenticated(r *http.Request) bool {
	if !s.authEnabled() {
		return true
	}
	session, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return false
	}
	ok, _ := session.Values["authenticated"].(bool)
	return ok
}

// requireAuth redirects unauthenticated browsers to the login page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() || s.authenticated(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.render(w, http.StatusBadRequest, "login.html", loginView{Error: "invalid form"})
		return
	}

	password := r.PostFormValue("password")
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Auth.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", "remote", r.RemoteAddr)
		s.render(w, http.StatusUnauthorized, "login.html", loginView{Error: "wrong password"})
		return
	}

	session, _ := s.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	if err := session.Save(r, w); err != nil {
		s.logger.Error("failed to save session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.sessions != nil {
		session, _ := s.sessions.Get(r, sessionName)
		session.Options.MaxAge = -1
		_ = session.Save(r, w)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
