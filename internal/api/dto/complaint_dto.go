package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CustomerPayload is the contact snapshot sent with a new complaint.
type CustomerPayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Customer    CustomerPayload `json:"customer" validate:"required"`
}

// UpdateComplaintRequest payload.
type UpdateComplaintRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// ResolveComplaintRequest payload. Type is the legacy name of Status.
type ResolveComplaintRequest struct {
	Status  *string `json:"status"`
	Type    *string `json:"type"`
	Comment *string `json:"comment"`
}

// EffectiveStatus prefers status over the legacy type key.
func (r ResolveComplaintRequest) EffectiveStatus() *string {
	if r.Status != nil {
		return r.Status
	}
	return r.Type
}

// CustomerResponse mirrors domain.Customer.
type CustomerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ComplaintResponse is the wire shape of a complaint.
type ComplaintResponse struct {
	ID          int              `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	Customer    CustomerResponse `json:"customer"`
	Comment     *string          `json:"comment"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewComplaintResponse converts a domain complaint.
func NewComplaintResponse(c domain.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Status:      string(c.Status),
		Customer: CustomerResponse{
			Name:  c.Customer.Name,
			Email: c.Customer.Email,
			Phone: c.Customer.Phone,
		},
		Comment:   c.Comment,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewComplaintList converts a slice, never returning nil.
func NewComplaintList(complaints []domain.Complaint) []ComplaintResponse {
	items := make([]ComplaintResponse, 0, len(complaints))
	for _, c := range complaints {
		items = append(items, NewComplaintResponse(c))
	}
	return items
}
