package app

import (
	"context"
	"net/http"
	"time"

	"workboard/api/internal/auth"
	"workboard/api/internal/authpw"
	"workboard/api/internal/board"
	"workboard/api/internal/config"
	"workboard/api/internal/rbac"
	"workboard/api/internal/search"
	"workboard/api/internal/store"
	"workboard/api/internal/util"
)

// Session is the authenticated caller context resolved from a bearer token.
type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	board.Fetcher
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	Ping(ctx context.Context) error
}

// sessionStore holds refresh sessions. Redis in production, Postgres when
// Redis is not configured.
type sessionStore interface {
	Save(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (store.User, error)
	Revoke(ctx context.Context, tokenHash string) error
}

type searcher interface {
	Search(q search.Query) search.Response
}

// PGSessionStore adapts the refresh_sessions table to the session store
// interface.
type PGSessionStore struct {
	store *store.PostgresStore
}

func NewPGSessionStore(s *store.PostgresStore) *PGSessionStore {
	return &PGSessionStore{store: s}
}

func (p *PGSessionStore) Save(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, user.ID, expiresAt)
}

func (p *PGSessionStore) Lookup(ctx context.Context, tokenHash string) (store.User, error) {
	return p.store.LookupRefreshSession(ctx, tokenHash)
}

func (p *PGSessionStore) Revoke(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
	engine    *board.Engine
	search    searcher
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions sessionStore, searchService *search.Service) *Service {
	if sessions == nil {
		sessions = NewPGSessionStore(dataStore)
	}
	svc := &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  sessions,
		passwords: authpw.NewService(dataStore),
		engine:    board.New(dataStore, dataStore),
	}
	if searchService != nil {
		svc.search = searchService
	}
	return svc
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.Lookup(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "refresh token is invalid or expired", nil)
	}
	// The account is re-read at rotation: role changes take effect on the
	// next token and a removed account cannot refresh.
	current, err := s.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "refresh token is invalid or expired", nil)
	}
	if err := s.sessions.Revoke(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, current)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Iat:  now.Unix(),
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken validates a bearer token. The claims carry the full
// identity, so the hot path needs no store lookup.
func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Role:      string(rbac.Normalize(claims.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// SignOut revokes the refresh session. Access tokens expire on their own.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Pipelines(ctx context.Context) ([]store.Pipeline, error) {
	return s.store.ListPipelines(ctx)
}

// ProjectBoard computes the display stages of one pipeline for the acting
// user. Privilege is recomputed from the session role on every call.
func (s *Service) ProjectBoard(ctx context.Context, pipelineID string, session Session) ([]board.Item, error) {
	return s.engine.Project(ctx, pipelineID, board.Options{
		ActingUserID: session.UserID,
		Privileged:   rbac.Privileged(rbac.Normalize(session.Role)),
	})
}

// ProjectCard projects a single entity in pipeline context. Returns (nil, nil)
// when the entity does not surface on that board.
func (s *Service) ProjectCard(ctx context.Context, entityType store.EntityType, entityID, pipelineID string) (*board.Item, error) {
	return s.engine.ProjectSingle(ctx, entityType, entityID, pipelineID)
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// Ping checks the health of service dependencies.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
