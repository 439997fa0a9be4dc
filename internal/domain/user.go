package domain

import "time"

// User represents a registered marketplace identity, keyed by wallet address.
// Registration is one-shot: the record is immutable once created.
type User struct {
	Address   string    `json:"address"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Location  string    `json:"location"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest represents a registration request. The caller address
// comes from the verified identity token, not the body.
type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required,max=100"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Location string `json:"location" binding:"max=100"`
	Country  string `json:"country" binding:"required,max=56"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	Address   string    `json:"address"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Location  string    `json:"location"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

// LookupResponse is the total read for an address: Registered is false and
// User nil when the address has never registered.
type LookupResponse struct {
	Registered bool          `json:"registered"`
	User       *UserResponse `json:"user,omitempty"`
}

// ToResponse converts User to UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		Address:   u.Address,
		FullName:  u.FullName,
		Username:  u.Username,
		Email:     u.Email,
		Location:  u.Location,
		Country:   u.Country,
		CreatedAt: u.CreatedAt,
	}
}
