package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"sipro/internal/platform/middleware"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
)

// Claims are the JWT claims carried by access tokens. Role and sector ride
// along so the access policy can decide without a user lookup per request.
type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	SectorID string `json:"sector_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey, issuer string) *JWTService {
	return &JWTService{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateAccessToken issues a signed token for the given user.
func (s *JWTService) GenerateAccessToken(userID domain.UserID, role domain.Role, sectorID domain.SectorID, expiresIn time.Duration) (string, error) {
	claims := Claims{
		UserID: userID.String(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	if !sectorID.IsNil() {
		claims.SectorID = sectorID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning middleware claims for
// the auth chain.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token role")
	}

	out := &middleware.Claims{UserID: userID, Role: role}
	if claims.SectorID != "" {
		sectorID, err := domain.ParseSectorID(claims.SectorID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token sector")
		}
		out.SectorID = sectorID
	}
	return out, nil
}
