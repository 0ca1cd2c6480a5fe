package auth

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/social-recovery/recovery_wallet/internal/account"
	"github.com/social-recovery/recovery_wallet/internal/config"
)

// Service issues and revokes session tokens for accounts.
type Service struct {
	cfg  config.Config
	repo account.Repository
}

// NewService builds an auth service.
func NewService(cfg config.Config, repo account.Repository) *Service {
	return &Service{cfg: cfg, repo: repo}
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues tokens for an already authenticated account.
func (s *Service) Login(acct account.Account) (TokenPair, error) {
	access, err := s.sign(acct.Address, acct.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(acct.Address, acct.TokenVersion, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

func (s *Service) sign(address common.Address, version int, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := map[string]any{
		"sub": address.Hex(),
		"ver": version,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return SignHS256(claims, []byte(secret))
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseAndVerifyHS256(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}
	acct, err := s.Verify(ctx, claims)
	if err != nil {
		return "", 0, err
	}
	signed, err := s.sign(acct.Address, acct.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Verify resolves token claims to a live account, rejecting revoked versions.
func (s *Service) Verify(ctx context.Context, claims map[string]any) (account.Account, error) {
	sub, _ := claims["sub"].(string)
	verFloat, _ := claims["ver"].(float64)
	if !common.IsHexAddress(sub) {
		return account.Account{}, errors.New("invalid subject")
	}
	acct, err := s.repo.FindByAddress(ctx, common.HexToAddress(sub))
	if err != nil {
		return account.Account{}, errors.New("account not found")
	}
	if acct.TokenVersion != int(verFloat) {
		return account.Account{}, errors.New("token version invalidated")
	}
	return acct, nil
}

// Logout increments the token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, address common.Address) error {
	acct, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		return err
	}
	return s.repo.UpdateTokenVersion(ctx, acct.Address, acct.TokenVersion+1)
}
