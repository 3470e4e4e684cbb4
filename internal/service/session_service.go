package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"
	"github.com/boddenberg/financas-familia-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ============================================================
// Sessão — POST /v1/session
// ============================================================

const sessionIssuer = "financas-bfa"

// SessionClaims carries the whole user in the token, so no session
// table is needed.
type SessionClaims struct {
	Name       string      `json:"name"`
	FamilyID   string      `json:"familyId"`
	FamilyName string      `json:"familyName"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// SessionService issues and validates session tokens. There are no
// passwords: the family name is the shared access key.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	ids    port.IDGenerator
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionService creates the session service.
func NewSessionService(secret string, ttl time.Duration, ids port.IDGenerator, logger *zap.Logger) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		ids:    ids,
		now:    time.Now,
		logger: logger,
	}
}

// Start creates a user for the family and signs a token for it.
func (s *SessionService) Start(ctx context.Context, req *domain.SessionRequest) (*domain.SessionResponse, error) {
	_, span := tracer.Start(ctx, "SessionService.Start")
	defer span.End()

	familyName := strings.TrimSpace(req.FamilyName)
	userName := strings.TrimSpace(req.UserName)
	if familyName == "" {
		return nil, &domain.ErrValidation{Field: "familyName", Message: "nome da família é obrigatório"}
	}
	if userName == "" {
		return nil, &domain.ErrValidation{Field: "userName", Message: "seu nome é obrigatório"}
	}
	role := req.Role
	switch role {
	case "":
		role = domain.RolePrimary
	case domain.RolePrimary, domain.RoleSecondary:
	default:
		return nil, &domain.ErrValidation{Field: "role", Message: fmt.Sprintf("perfil desconhecido %q", role)}
	}

	user := domain.User{
		ID:         s.ids.NewID(),
		Name:       userName,
		FamilyID:   domain.NormalizeFamilyID(familyName),
		FamilyName: familyName,
		Role:       role,
	}

	now := s.now()
	claims := SessionClaims{
		Name:       user.Name,
		FamilyID:   user.FamilyID,
		FamilyName: user.FamilyName,
		Role:       user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    sessionIssuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Info("session started",
		zap.String("family_id", user.FamilyID),
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	return &domain.SessionResponse{
		Token:     token,
		ExpiresIn: int(s.ttl.Seconds()),
		User:      user,
	}, nil
}

// Validate decodes a token back into its user.
func (s *SessionService) Validate(tokenString string) (*domain.User, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Sessão inválida ou expirada"}
	}
	if claims.FamilyID == "" || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "Sessão sem família"}
	}

	return &domain.User{
		ID:         claims.Subject,
		Name:       claims.Name,
		FamilyID:   claims.FamilyID,
		FamilyName: claims.FamilyName,
		Role:       claims.Role,
	}, nil
}
