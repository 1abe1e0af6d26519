package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/store"
)

// ComplaintsCollection is the store collection name for complaints.
const ComplaintsCollection = "complaints"

// ComplaintFilter narrows a listing. Nil fields do not filter.
type ComplaintFilter struct {
	OwnerEmail *string
	ID         *int
	Status     *string
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	List(ctx context.Context) ([]domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	// Mutate runs fn under the complaints lock and persists its result.
	Mutate(ctx context.Context, fn func([]domain.Complaint) ([]domain.Complaint, error)) error
}

type customerRecord struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type complaintRecord struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Customer    customerRecord `json:"customer"`
	Comment     *string        `json:"comment"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type complaintRepository struct {
	coll *store.Collection[complaintRecord]
}

// NewComplaintRepository returns a repository backed by the "complaints"
// collection.
func NewComplaintRepository(backend store.Backend) ComplaintRepository {
	return &complaintRepository{coll: store.NewCollection[complaintRecord](backend, ComplaintsCollection)}
}

func (r *complaintRepository) List(ctx context.Context) ([]domain.Complaint, error) {
	records, err := r.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return complaintsFromRecords(records)
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	complaints, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if filter.OwnerEmail != nil && !c.OwnedBy(*filter.OwnerEmail) {
			continue
		}
		if filter.ID != nil && c.ID != *filter.ID {
			continue
		}
		if filter.Status != nil && !strings.EqualFold(string(c.Status), *filter.Status) {
			continue
		}
		matched = append(matched, c)
	}
	return matched, nil
}

func (r *complaintRepository) Mutate(ctx context.Context, fn func([]domain.Complaint) ([]domain.Complaint, error)) error {
	return r.coll.Update(ctx, func(records []complaintRecord) ([]complaintRecord, error) {
		complaints, err := complaintsFromRecords(records)
		if err != nil {
			return nil, err
		}
		next, err := fn(complaints)
		if err != nil {
			return nil, err
		}
		return complaintsToRecords(next), nil
	})
}

func complaintsFromRecords(records []complaintRecord) ([]domain.Complaint, error) {
	complaints := make([]domain.Complaint, 0, len(records))
	for _, rec := range records {
		status, err := domain.ParseComplaintStatus(rec.Status)
		if err != nil {
			return nil, fmt.Errorf("complaint %d: stored status %q is not valid", rec.ID, rec.Status)
		}
		complaints = append(complaints, domain.Complaint{
			ID:          rec.ID,
			Title:       rec.Title,
			Description: rec.Description,
			Status:      status,
			Customer: domain.Customer{
				Name:  rec.Customer.Name,
				Email: rec.Customer.Email,
				Phone: rec.Customer.Phone,
			},
			Comment:   rec.Comment,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return complaints, nil
}

func complaintsToRecords(complaints []domain.Complaint) []complaintRecord {
	records := make([]complaintRecord, 0, len(complaints))
	for _, c := range complaints {
		records = append(records, complaintRecord{
			ID:          c.ID,
			Title:       c.Title,
			Description: c.Description,
			Status:      string(c.Status),
			Customer: customerRecord{
				Name:  c.Customer.Name,
				Email: c.Customer.Email,
				Phone: c.Customer.Phone,
			},
			Comment:   c.Comment,
			CreatedAt: c.CreatedAt.UTC(),
			UpdatedAt: c.UpdatedAt.UTC(),
		})
	}
	return records
}
