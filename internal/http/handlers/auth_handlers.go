package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rogerio-castellano/storefront/internal/backend"
	"github.com/sirupsen/logrus"
)

func currentSession(redirect string) SessionResponse {
	resp := SessionResponse{LoggedIn: sess.LoggedIn(), Staff: sess.IsStaff(), Redirect: redirect}
	if u, ok := sess.User(); ok {
		resp.User = &u
	}
	return resp
}

// LoginHandler godoc
// @Summary Log in against the store backend
// @Description Stores the token and the profile and returns the pending post-login redirect, if any
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body UserLogin true "username and password"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Iniciar sesión"

	var creds UserLogin
	if err := readJSON(w, r, &creds); err != nil {
		badRequest(w, action, "invalid input")
		return
	}
	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		badRequest(w, action, "Missing credentials")
		return
	}

	res, err := authenticator.Login(r.Context(), backend.Credentials{Username: creds.Username, Password: creds.Password})
	if err != nil {
		writeError(w, action, err)
		return
	}
	if res.Token == "" {
		writeError(w, action, errors.New("backend returned no token"))
		return
	}
	if res.User.Username == "" {
		res.User.Username = creds.Username
	}
	if err := sess.Login(r.Context(), res.Token, res.User); err != nil {
		writeError(w, action, err)
		return
	}

	logrus.WithField("user", res.User.Username).Info("Logged in")
	respond(w, http.StatusOK, currentSession(sess.PopRedirect(r.Context())))
}

// LogoutHandler godoc
// @Summary Log out
// @Description The local session is cleared even when the backend call fails
// @Tags auth
// @Success 204 "Logged out"
// @Router /logout [post]
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if sess.LoggedIn() {
		if err := authenticator.Logout(r.Context()); err != nil {
			logrus.WithError(err).Warn("Backend logout failed")
		}
	}
	if err := sess.Clear(r.Context()); err != nil {
		logrus.WithError(err).Warn("Could not clear stored session")
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSessionHandler godoc
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /session [get]
func GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, currentSession(""))
}

// SetRedirectHandler godoc
// @Summary Remember where to go after the next login
// @Tags auth
// @Accept json
// @Param redirect body RedirectRequest true "path"
// @Success 204 "Stored"
// @Failure 400 {object} ErrorResponse
// @Router /session/redirect [put]
func SetRedirectHandler(w http.ResponseWriter, r *http.Request) {
	const action = "Guardar redirección"

	var req RedirectRequest
	if err := readJSON(w, r, &req); err != nil || !strings.HasPrefix(req.Path, "/") {
		badRequest(w, action, "path must be an absolute path")
		return
	}
	if err := sess.SetRedirect(r.Context(), req.Path); err != nil {
		writeError(w, action, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
