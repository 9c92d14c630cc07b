package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxUsernameLength = 32

var (
	// ErrTokenRequired is returned when the relay has a secret and the hello carries no token.
	ErrTokenRequired = errors.New("token required")
	// ErrInvalidToken is returned when a token fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
)

// Identity is who a connection speaks as once its hello is accepted.
type Identity struct {
	UserID   string
	Username string
}

// Service resolves hello credentials into an identity.
type Service struct {
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service. A nil config or an empty secret
// disables tokens: any well-formed username is accepted.
func NewService(jwtConfig *JWTConfig) *Service {
	return &Service{jwtConfig: jwtConfig}
}

// TokensRequired reports whether hellos must carry a token.
func (s *Service) TokensRequired() bool {
	return s.jwtConfig != nil && len(s.jwtConfig.Secret) > 0
}

// Authenticate returns the identity for a hello. With tokens enabled the username and
// user id come from the token claims and the requested name is ignored.
func (s *Service) Authenticate(token, username, userID string) (Identity, error) {
	if !s.TokensRequired() {
		username = strings.TrimSpace(username)
		if err := validateUsername(username); err != nil {
			return Identity{}, err
		}
		return Identity{UserID: userID, Username: username}, nil
	}

	if token == "" {
		return Identity{}, ErrTokenRequired
	}
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := validateUsername(claims.Username); err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// IssueToken mints a session token for username.
func (s *Service) IssueToken(userID, username string) (string, error) {
	if !s.TokensRequired() {
		return "", errors.New("tokens are disabled: no secret configured")
	}
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return "", err
	}
	return GenerateToken(s.jwtConfig, userID, username)
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 || n > maxUsernameLength {
		return ErrInvalidUsername
	}
	return nil
}
