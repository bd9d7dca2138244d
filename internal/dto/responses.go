package dto

import (
	"github.com/lukamba/kitadi-backend/internal/models"
	"github.com/lukamba/kitadi-backend/internal/service"
)

// ErrorResponse represents a standardized error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a standardized success payload
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse represents the result of registration or login
type AuthResponse struct {
	User      *models.User       `json:"user"`
	Wallet    *models.Wallet     `json:"wallet,omitempty"`
	TokenPair *service.TokenPair `json:"tokens"`
}

// NewAuthResponse creates an AuthResponse from the service result
func NewAuthResponse(result *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		User:      result.User,
		Wallet:    result.Wallet,
		TokenPair: result.TokenPair,
	}
}

// Page wraps a list with pagination metadata
type Page struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// NewPage creates a Page from components
func NewPage(items interface{}, total, limit, offset int) *Page {
	return &Page{Items: items, Total: total, Limit: limit, Offset: offset}
}
