package service

import "errors"

// Typed business errors. Each maps to a stable machine-readable code at
// the HTTP boundary; handlers never invent codes of their own.
var (
	ErrAlreadyRegistered  = errors.New("address already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidAmount      = errors.New("amount does not match product price")
	ErrNotAuthorized      = errors.New("caller is not the product seller")
	ErrNotBuyer           = errors.New("caller is not the escrow buyer")
	ErrNotLocked          = errors.New("escrow lock is not active")
	ErrProductAlreadySold = errors.New("product already sold")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductNotListed   = errors.New("product is not listed")
	ErrInvalidCondition   = errors.New("unknown product condition")
)

// Code returns the stable error code for a business error, or empty for
// errors that are not part of the public contract.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		return "ALREADY_REGISTERED"
	case errors.Is(err, ErrUsernameTaken):
		return "USERNAME_TAKEN"
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrNotAuthorized):
		return "NOT_AUTHORIZED"
	case errors.Is(err, ErrNotBuyer):
		return "NOT_BUYER"
	case errors.Is(err, ErrNotLocked):
		return "NOT_LOCKED"
	case errors.Is(err, ErrProductAlreadySold):
		return "PRODUCT_ALREADY_SOLD"
	case errors.Is(err, ErrProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, ErrProductNotListed):
		return "PRODUCT_NOT_LISTED"
	case errors.Is(err, ErrInvalidCondition):
		return "INVALID_CONDITION"
	}
	return ""
}
