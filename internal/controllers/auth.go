package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/middleware"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/models"
	"github.com/Nchan8120/GBC-Outfit-Evaluator/internal/views"
)

// AuthController handles signup/signin flows. Signing in binds the
// account to the browser session that already exists, so the photo
// selection made while anonymous carries over.
type AuthController struct {
	userService    *models.UserService
	sessionService *models.SessionService
	templates      AuthTemplates
}

// AuthTemplates holds the auth page templates.
type AuthTemplates struct {
	SignUp *views.Template
	SignIn *views.Template
}

func NewAuthController(
	us *models.UserService,
	ss *models.SessionService,
	templates AuthTemplates,
) *AuthController {
	return &AuthController{
		userService:    us,
		sessionService: ss,
		templates:      templates,
	}
}

// AuthFormData carries sticky form values between attempts.
type AuthFormData struct {
	Email    string
	Redirect string
}

// Display signup form
func (ac *AuthController) GetSignUp(w http.ResponseWriter, r *http.Request) {
	data := &views.TemplateData{
		Title:     "Sign Up",
		CSRFToken: csrf.Token(r),
		Data: AuthFormData{
			Email:    r.URL.Query().Get("email"),
			Redirect: safeRedirect(r.URL.Query().Get("redirect")),
		},
	}
	ac.templates.SignUp.ExecuteHTTP(w, r, data)
}

// Create new user - post signup
func (ac *AuthController) PostSignUp(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	if err := r.ParseForm(); err != nil {
		ac.renderAuthError(w, r, ac.templates.SignUp, "Sign Up", "", "", "Failed to parse form")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := strings.TrimSpace(r.FormValue("password"))
	confirmPassword := strings.TrimSpace(r.FormValue("confirm_password"))
	redirect := safeRedirect(r.FormValue("redirect"))

	if email == "" {
		ac.renderAuthError(w, r, ac.templates.SignUp, "Sign Up", email, redirect, "Email is required")
		return
	}
	if password == "" {
		ac.renderAuthError(w, r, ac.templates.SignUp, "Sign Up", email, redirect, "Password is required")
		return
	}
	if password != confirmPassword {
		ac.renderAuthError(w, r, ac.templates.SignUp, "Sign Up", email, redirect, "Passwords do not match")
		return
	}

	user, err := ac.userService.Create(r.Context(), email, password)
	if err != nil {
		msg := "Something went wrong. Please try again."
		switch {
		case errors.Is(err, models.ErrEmailAlreadyExists):
			msg = "An account with that email already exists"
		case errors.Is(err, models.ErrPasswordTooShort):
			msg = "Password must be at least 8 characters"
		default:
			log.Printf("Signup failed: %v", err)
		}
		ac.renderAuthError(w, r, ac.templates.SignUp, "Sign Up", email, redirect, msg)
		return
	}

	ac.signIn(w, r, session, user, redirect)
}

func (ac *AuthController) GetSignIn(w http.ResponseWriter, r *http.Request) {
	data := &views.TemplateData{
		Title:     "Sign In",
		CSRFToken: csrf.Token(r),
		Data: AuthFormData{
			Email:    r.URL.Query().Get("email"),
			Redirect: safeRedirect(r.URL.Query().Get("redirect")),
		},
	}
	ac.templates.SignIn.ExecuteHTTP(w, r, data)
}

func (ac *AuthController) PostSignIn(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	if err := r.ParseForm(); err != nil {
		ac.renderAuthError(w, r, ac.templates.SignIn, "Sign In", "", "", "Failed to parse form")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := strings.TrimSpace(r.FormValue("password"))
	redirect := safeRedirect(r.FormValue("redirect"))

	if email == "" {
		ac.renderAuthError(w, r, ac.templates.SignIn, "Sign In", email, redirect, "Email is required")
		return
	}
	if password == "" {
		ac.renderAuthError(w, r, ac.templates.SignIn, "Sign In", email, redirect, "Password is required")
		return
	}

	user, err := ac.userService.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, models.ErrInvalidCredentials) {
			log.Printf("Signin failed: %v", err)
		}
		ac.renderAuthError(w, r, ac.templates.SignIn, "Sign In", email, redirect, "Invalid email or password")
		return
	}

	ac.signIn(w, r, session, user, redirect)
}

// Unbind the account / process sign out. The session itself and its
// photo selection stay.
func (ac *AuthController) PostLogout(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	if err := ac.sessionService.UnbindUser(r.Context(), session.ID); err != nil {
		log.Printf("Logout failed: %v", err)
		http.Redirect(w, r, "/?error=Failed+to+log+out", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/?msg=logged_out", http.StatusSeeOther)
}

// HELPER FUNCS ----------------------------------------------------

// signIn binds the user to the session and redirects.
func (ac *AuthController) signIn(w http.ResponseWriter, r *http.Request, session *models.Session, user *models.User, redirect string) {
	if err := ac.sessionService.BindUser(r.Context(), session.ID, user.ID); err != nil {
		log.Printf("Failed to bind user %d to session: %v", user.ID, err)
		ac.renderAuthError(w, r, ac.templates.SignIn, "Sign In", user.Email, redirect, "Something went wrong. Please try again.")
		return
	}
	if err := ac.userService.UpdateLastLogin(r.Context(), user.ID); err != nil {
		log.Printf("Failed to update last login for user %d: %v", user.ID, err)
	}

	if redirect == "" {
		redirect = "/"
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// renderAuthError re-renders an auth form with an error message.
func (ac *AuthController) renderAuthError(w http.ResponseWriter, r *http.Request, tmpl *views.Template, title, email, redirect, msg string) {
	data := &views.TemplateData{
		Title:     title,
		CSRFToken: csrf.Token(r),
		Error:     msg,
		Data: AuthFormData{
			Email:    email,
			Redirect: redirect,
		},
	}
	tmpl.ExecuteHTTPWithStatus(w, r, http.StatusUnprocessableEntity, data)
}

// safeRedirect only allows local paths, so the redirect parameter
// cannot send users off-site.
func safeRedirect(target string) string {
	if target == "" {
		return ""
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return ""
	}
	return target
}
