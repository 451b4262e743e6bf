package auth

import (
	"context"
	"errors"
	"time"

	"sipro/internal/directory"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/platform/sentinel"
)

const accessTokenTTL = 8 * time.Hour

// Service implements email+password login. Wrong email and wrong password
// collapse into the same error so the endpoint does not leak which emails
// exist.
type Service struct {
	users directory.UserStore
	jwt   *JWTService
}

func NewService(users directory.UserStore, jwt *JWTService) *Service {
	return &Service{users: users, jwt: jwt}
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token string
	User  *directory.User
}

// Login checks credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is inactive")
	}

	if err := VerifyCredential(password, user.CredentialHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeAuthentication) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}

	token, err := s.jwt.GenerateAccessToken(user.ID, user.Role, user.SectorID, accessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &LoginResult{Token: token, User: user}, nil
}
