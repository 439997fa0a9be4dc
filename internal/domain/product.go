package domain

import (
	"fmt"
	"time"
)

// Condition is the closed set of product conditions. Anything outside the
// enumeration is rejected at the boundary by ParseCondition.
type Condition string

const (
	ConditionNew     Condition = "New"
	ConditionLikeNew Condition = "LikeNew"
	ConditionGood    Condition = "Good"
	ConditionFair    Condition = "Fair"
	ConditionUsed    Condition = "Used"
)

// ParseCondition validates a raw condition string.
func ParseCondition(s string) (Condition, error) {
	c := Condition(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown condition: %q", s)
	}
	return c, nil
}

// Valid reports whether the condition is one of the enumerated values.
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionUsed:
		return true
	}
	return false
}

// Product represents a listing. Products are never deleted; history is
// retained for audit and reputation purposes.
type Product struct {
	ID          uint64    `json:"id"`
	Seller      string    `json:"seller"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Condition   Condition `json:"condition"`
	ListedAt    time.Time `json:"listed_at"`
	Reputation  int64     `json:"reputation"` // seller reputation snapshot at listing time
	Price       int64     `json:"price"`      // smallest currency unit
	Sold        bool      `json:"sold"`
	Listed      bool      `json:"listed"`
}

// ListProductRequest represents a new listing request.
type ListProductRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Image       string `json:"image" binding:"max=500"`
	Category    string `json:"category" binding:"required,max=100"`
	Location    string `json:"location" binding:"max=100"`
	Condition   string `json:"condition" binding:"required"`
	Price       int64  `json:"price"`
}

// EditProductRequest represents an edit request. The product name is
// immutable after listing and is deliberately absent.
type EditProductRequest struct {
	Description string `json:"description" binding:"max=2000"`
	Image       string `json:"image" binding:"max=500"`
	Category    string `json:"category" binding:"required,max=100"`
	Location    string `json:"location" binding:"max=100"`
	Condition   string `json:"condition" binding:"required"`
	Price       int64  `json:"price"`
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID          uint64    `json:"id"`
	Seller      string    `json:"seller"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Condition   Condition `json:"condition"`
	ListedAt    time.Time `json:"listed_at"`
	Reputation  int64     `json:"reputation"`
	Price       int64     `json:"price"`
	Sold        bool      `json:"sold"`
	Listed      bool      `json:"listed"`
}

// ProductFilter narrows a catalog browse.
type ProductFilter struct {
	Category   string
	Seller     string
	ListedOnly bool
}

// ListProductsResponse is a paginated browse result.
type ListProductsResponse struct {
	Products   []ProductResponse `json:"products"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// ImagePresignRequest is the request body for presigning an image upload.
type ImagePresignRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// ImagePresignResponse is returned when a presigned upload URL is generated.
type ImagePresignResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// ToResponse converts Product to ProductResponse.
func (p *Product) ToResponse() ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Seller:      p.Seller,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Category:    p.Category,
		Location:    p.Location,
		Condition:   p.Condition,
		ListedAt:    p.ListedAt,
		Reputation:  p.Reputation,
		Price:       p.Price,
		Sold:        p.Sold,
		Listed:      p.Listed,
	}
}
