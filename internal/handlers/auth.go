package handlers

import (
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
	"golang.org/x/crypto/bcrypt"

	"github.com/beiya2414/classboard/internal/app"
)

type AuthHandler struct {
	service *app.Service
}

func NewAuthHandler(service *app.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	ID       int64  `json:"Id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleTeacherLogin checks credentials and sets the session cookie.
func (h *AuthHandler) HandleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	teacher, err := h.service.Store.GetTeacher(req.ID)
	if err != nil {
		logger.Error.Printf("Failed to fetch teacher %d: %v", req.ID, err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if teacher == nil || bcrypt.CompareHashAndPassword([]byte(teacher.Password), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Wrong id or password")
		return
	}

	token, err := h.service.Sessions.CreateTeacherSession(r.Context(), teacher)
	if err != nil {
		logger.Error.Printf("Failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.service.Config.Auth.TeacherCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(time.Duration(h.service.Config.Auth.TeacherSessionDays) * 24 * time.Hour),
	})

	writeSuccess(w, map[string]interface{}{
		"name":    teacher.FullName(),
		"subject": teacher.Subject,
		"isAdmin": teacher.IsAdmin,
	})
}

func (h *AuthHandler) HandleTeacherLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.service.Config.Auth.TeacherCookie)
	if err == nil && cookie.Value != "" {
		if err := h.service.Sessions.DeleteTeacherSession(r.Context(), cookie.Value); err != nil {
			logger.Error.Printf("Failed to delete session: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.service.Config.Auth.TeacherCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeSuccess(w, nil)
}

// HandleTeacherProfile reports who the session cookie belongs to.
func (h *AuthHandler) HandleTeacherProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := h.service.TeacherFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	writeSuccess(w, map[string]interface{}{
		"Id":      principal.ID,
		"name":    principal.FullName,
		"subject": principal.Subject,
		"isAdmin": principal.IsAdmin,
	})
}

// HandleScreenLogin authenticates a classroom display. Screen sessions
// outlive teacher ones, the device stays logged in for a month.
func (h *AuthHandler) HandleScreenLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	screen, err := h.service.Store.GetScreen(req.ID)
	if err != nil {
		logger.Error.Printf("Failed to fetch screen %d: %v", req.ID, err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if screen == nil || bcrypt.CompareHashAndPassword([]byte(screen.Password), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Wrong id or password")
		return
	}

	token, err := h.service.Sessions.CreateScreenSession(r.Context(), screen.ID)
	if err != nil {
		logger.Error.Printf("Failed to create screen session: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.service.Config.Auth.ScreenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(time.Duration(h.service.Config.Auth.ScreenSessionDays) * 24 * time.Hour),
	})

	writeSuccess(w, map[string]interface{}{"Id": screen.ID})
}

func (h *AuthHandler) HandleScreenProfile(w http.ResponseWriter, r *http.Request) {
	screen, err := h.service.ScreenFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	writeSuccess(w, map[string]interface{}{"Id": screen.ID})
}
