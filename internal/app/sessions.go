package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/beiya2414/classboard/internal/models"
)

var ErrNoSession = errors.New("session not found")

// Principal is the authenticated teacher attached to a request.
type Principal struct {
	ID       int64
	FullName string
	Subject  string
	IsAdmin  bool
}

// ScreenSession is the authenticated classroom display.
type ScreenSession struct {
	ID int64
}

// PrincipalResolver turns opaque cookie tokens into principals.
// Handlers depend on this interface so tests can swap in a fake.
type PrincipalResolver interface {
	CreateTeacherSession(ctx context.Context, t *models.Teacher) (string, error)
	ResolveTeacher(ctx context.Context, token string) (*Principal, error)
	DeleteTeacherSession(ctx context.Context, token string) error
	CreateScreenSession(ctx context.Context, screenID int64) (string, error)
	ResolveScreen(ctx context.Context, token string) (*ScreenSession, error)
	DeleteScreenSession(ctx context.Context, token string) error
	Close() error
}

// Sessions stores sessions as redis hashes with a TTL. Teacher sessions
// live for a week, screen sessions for a month; the exact spans come
// from config.
type Sessions struct {
	redis      *redis.Client
	teacherTTL time.Duration
	screenTTL  time.Duration
}

func NewSessions(config *Config) (*Sessions, error) {
	opt, err := redis.ParseURL(config.Auth.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Sessions{
		redis:      client,
		teacherTTL: time.Duration(config.Auth.TeacherSessionDays) * 24 * time.Hour,
		screenTTL:  time.Duration(config.Auth.ScreenSessionDays) * 24 * time.Hour,
	}, nil
}

func (s *Sessions) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func teacherKey(token string) string { return "session:teacher:" + token }
func screenKey(token string) string  { return "session:screen:" + token }

func (s *Sessions) CreateTeacherSession(ctx context.Context, t *models.Teacher) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	key := teacherKey(token)
	pipe := s.redis.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"id":        t.ID,
		"full_name": t.FullName(),
		"subject":   t.Subject,
		"is_admin":  t.IsAdmin,
	})
	pipe.Expire(ctx, key, s.teacherTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	logger.Debug.Printf("Created teacher session for id=%d", t.ID)
	return token, nil
}

func (s *Sessions) ResolveTeacher(ctx context.Context, token string) (*Principal, error) {
	fields, err := s.redis.HGetAll(ctx, teacherKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNoSession
	}

	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session: %w", err)
	}
	isAdmin, _ := strconv.ParseBool(fields["is_admin"])

	return &Principal{
		ID:       id,
		FullName: fields["full_name"],
		Subject:  fields["subject"],
		IsAdmin:  isAdmin,
	}, nil
}

func (s *Sessions) DeleteTeacherSession(ctx context.Context, token string) error {
	return s.redis.Del(ctx, teacherKey(token)).Err()
}

func (s *Sessions) CreateScreenSession(ctx context.Context, screenID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	key := screenKey(token)
	pipe := s.redis.Pipeline()
	pipe.HSet(ctx, key, "id", screenID)
	pipe.Expire(ctx, key, s.screenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	logger.Debug.Printf("Created screen session for id=%d", screenID)
	return token, nil
}

func (s *Sessions) ResolveScreen(ctx context.Context, token string) (*ScreenSession, error) {
	fields, err := s.redis.HGetAll(ctx, screenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNoSession
	}

	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session: %w", err)
	}

	return &ScreenSession{ID: id}, nil
}

func (s *Sessions) DeleteScreenSession(ctx context.Context, token string) error {
	return s.redis.Del(ctx, screenKey(token)).Err()
}
