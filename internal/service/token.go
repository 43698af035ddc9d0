package service

import "github.com/rookgm/orderflow/internal/models"

// TokenService verifies tokens of authenticated actors
type TokenService interface {
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}
