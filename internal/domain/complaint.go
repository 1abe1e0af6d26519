package domain

import (
	"fmt"
	"strings"
	"time"
)

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusOpen   ComplaintStatus = "open"
	ComplaintStatusClosed ComplaintStatus = "closed"
)

// ParseComplaintStatus accepts "open" or "closed" in any case.
func ParseComplaintStatus(s string) (ComplaintStatus, error) {
	switch ComplaintStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ComplaintStatusOpen:
		return ComplaintStatusOpen, nil
	case ComplaintStatusClosed:
		return ComplaintStatusClosed, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Customer is the contact snapshot captured when a complaint is filed. It is
// not linked to any User record.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Complaint is the aggregate for customer complaints. The owner is whoever
// holds Customer.Email.
type Complaint struct {
	ID          int
	Title       string
	Description string
	Status      ComplaintStatus
	Customer    Customer
	Comment     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewComplaint builds an open complaint stamped with now.
func NewComplaint(id int, title, description string, customer Customer, now time.Time) (Complaint, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return Complaint{}, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if strings.TrimSpace(customer.Email) == "" {
		return Complaint{}, fmt.Errorf("%w: customer email is required", ErrInvalidInput)
	}
	return Complaint{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      ComplaintStatusOpen,
		Customer:    customer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// OwnedBy reports whether email matches the embedded customer email.
func (c Complaint) OwnedBy(email string) bool {
	return strings.EqualFold(c.Customer.Email, email)
}

// IsClosed reports whether the complaint reached its terminal state.
func (c Complaint) IsClosed() bool {
	return c.Status == ComplaintStatusClosed
}

// Edit replaces title and description. Status and id are untouched.
func (c *Complaint) Edit(title, description string, now time.Time) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	c.Title = title
	c.Description = description
	c.UpdatedAt = now
	return nil
}

// Resolve applies an admin resolution. A closed complaint cannot be resolved
// again.
func (c *Complaint) Resolve(status ComplaintStatus, comment *string, now time.Time) error {
	if c.IsClosed() {
		return ErrAlreadyClosed
	}
	c.Status = status
	c.Comment = comment
	c.UpdatedAt = now
	return nil
}

// NextComplaintID returns max(existing ids, 0) + 1. Ids of deleted
// complaints are never handed out again as long as a higher id survives.
func NextComplaintID(complaints []Complaint) int {
	highest := 0
	for _, c := range complaints {
		if c.ID > highest {
			highest = c.ID
		}
	}
	return highest + 1
}
