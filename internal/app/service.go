package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/beiya2414/classboard/internal/store"
)

var (
	ErrUnauthenticated = errors.New("not logged in")
	ErrForbidden       = errors.New("admin required")
)

type Service struct {
	Config   *Config
	Store    store.Store
	Sessions PrincipalResolver
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := NewStore(config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	if err := st.ApplyMigrations(config.Database.MigrationsDir); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	sessions, err := NewSessions(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init sessions: %w", err)
	}

	return &Service{
		Config:   config,
		Store:    st,
		Sessions: sessions,
	}, nil
}

// NewServiceWith wires a service from pre-built parts, for tests.
func NewServiceWith(config *Config, st store.Store, sessions PrincipalResolver) *Service {
	return &Service{Config: config, Store: st, Sessions: sessions}
}

// TeacherFromRequest resolves the session cookie into a teacher
// principal.
func (s *Service) TeacherFromRequest(r *http.Request) (*Principal, error) {
	cookie, err := r.Cookie(s.Config.Auth.TeacherCookie)
	if err != nil || cookie.Value == "" {
		return nil, ErrUnauthenticated
	}

	principal, err := s.Sessions.ResolveTeacher(r.Context(), cookie.Value)
	if errors.Is(err, ErrNoSession) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return principal, nil
}

// AdminFromRequest is TeacherFromRequest plus the admin bit.
func (s *Service) AdminFromRequest(r *http.Request) (*Principal, error) {
	principal, err := s.TeacherFromRequest(r)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin {
		return nil, ErrForbidden
	}
	return principal, nil
}

// ScreenFromRequest resolves the display cookie into a screen session.
func (s *Service) ScreenFromRequest(r *http.Request) (*ScreenSession, error) {
	cookie, err := r.Cookie(s.Config.Auth.ScreenCookie)
	if err != nil || cookie.Value == "" {
		return nil, ErrUnauthenticated
	}

	screen, err := s.Sessions.ResolveScreen(r.Context(), cookie.Value)
	if errors.Is(err, ErrNoSession) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return screen, nil
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
