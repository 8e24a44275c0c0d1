package jwttoken

import (
	"ballotbox/internal/platform/middleware"
)

// MiddlewareAdapter bridges the token service to the middleware's validator
// interface without the middleware importing this package's claim type.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		AccountID: claims.AccountID,
		Role:      claims.Role,
		JTI:       claims.ID,
	}, nil
}
