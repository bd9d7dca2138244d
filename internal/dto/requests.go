package dto

import "encoding/json"

// RegisterRequest represents the request to register a new user
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// LoginRequest represents the request to log in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the request to refresh a token pair
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// DepositRequest represents the request to top up a wallet
type DepositRequest struct {
	WalletID    *string `json:"wallet_id"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

// TransferRequest represents the request to transfer funds instantly
type TransferRequest struct {
	ToUserID     string  `json:"to_user_id" binding:"required"`
	FromWalletID *string `json:"from_wallet_id"`
	ToWalletID   *string `json:"to_wallet_id"`
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	Currency     string  `json:"currency"`
	Description  string  `json:"description"`
}

// ConditionRequest describes the contract condition in API requests
type ConditionRequest struct {
	Type                  string   `json:"type" binding:"required"`
	ConfirmUserID         *string  `json:"confirm_user_id"`
	Confirmers            []string `json:"confirmers"`
	RequiredConfirmations int      `json:"required_confirmations"`
	Timeout               string   `json:"timeout"`
}

// CreateContractRequest represents the request to create a smart contract
type CreateContractRequest struct {
	ToUserID     string           `json:"to_user_id" binding:"required"`
	FromWalletID *string          `json:"from_wallet_id"`
	ToWalletID   *string          `json:"to_wallet_id"`
	Amount       float64          `json:"amount" binding:"required,gt=0"`
	Currency     string           `json:"currency"`
	Description  *string          `json:"description"`
	Condition    ConditionRequest `json:"condition" binding:"required"`
	Metadata     json.RawMessage  `json:"metadata"`
}

// ConfirmContractRequest represents the request to confirm a contract
type ConfirmContractRequest struct {
	Notes *string `json:"notes"`
}
