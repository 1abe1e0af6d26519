package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// ComplaintService coordinates complaint workflows. Every mutation is a single
// read-modify-write on the complaints collection.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ComplaintDependencies bundles requirements for the complaint service.
// Clock defaults to time.Now.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         func() time.Time
}

// ComplaintInput describes a new complaint.
type ComplaintInput struct {
	Title       string
	Description string
	Customer    domain.Customer
}

// ComplaintQuery filters listings. ID wins over Status when both are set.
type ComplaintQuery struct {
	ID     *int
	Status *string
}

// ResolveInput is the admin resolution payload. A nil Status means closed.
type ResolveInput struct {
	Status  *string
	Comment *string
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        func() time.Time { return clock().UTC() },
	}
}

// PublicLookup finds a complaint by id and owner email without
// authentication. Both are required and both must match.
func (s *ComplaintService) PublicLookup(ctx context.Context, id *int, email string) (*domain.Complaint, error) {
	email = strings.TrimSpace(email)
	if id == nil || email == "" {
		return nil, fmt.Errorf("%w: ticket id and email are required", domain.ErrInvalidInput)
	}
	found, err := s.complaints.ListWithFilter(ctx, repository.ComplaintFilter{ID: id, OwnerEmail: &email})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, domain.ErrComplaintNotFound
	}
	return &found[0], nil
}

// ListForCustomer lists the caller's own complaints.
func (s *ComplaintService) ListForCustomer(ctx context.Context, actor domain.User, query ComplaintQuery) ([]domain.Complaint, error) {
	email := actor.Email
	return s.list(ctx, &email, query)
}

// Search lists complaints across all customers.
func (s *ComplaintService) Search(ctx context.Context, query ComplaintQuery) ([]domain.Complaint, error) {
	return s.list(ctx, nil, query)
}

func (s *ComplaintService) list(ctx context.Context, owner *string, query ComplaintQuery) ([]domain.Complaint, error) {
	filter := repository.ComplaintFilter{OwnerEmail: owner}
	switch {
	case query.ID != nil:
		filter.ID = query.ID
	case query.Status != nil && strings.TrimSpace(*query.Status) != "":
		status := strings.TrimSpace(*query.Status)
		filter.Status = &status
	}

	found, err := s.complaints.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if query.ID != nil && len(found) == 0 {
		return nil, domain.ErrComplaintNotFound
	}
	return found, nil
}

// Create files a complaint. Customers may only file under their own email;
// admins may file on behalf of anyone.
func (s *ComplaintService) Create(ctx context.Context, actor domain.User, input ComplaintInput) (*domain.Complaint, error) {
	if actor.Role != domain.RoleAdmin && !strings.EqualFold(strings.TrimSpace(input.Customer.Email), actor.Email) {
		return nil, fmt.Errorf("%w: customer email must match the authenticated user", domain.ErrForbidden)
	}
	input.Customer.Email = strings.TrimSpace(input.Customer.Email)

	var created domain.Complaint
	err := s.complaints.Mutate(ctx, func(complaints []domain.Complaint) ([]domain.Complaint, error) {
		complaint, err := domain.NewComplaint(domain.NextComplaintID(complaints), input.Title, input.Description, input.Customer, s.now())
		if err != nil {
			return nil, err
		}
		created = complaint
		return append(complaints, complaint), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint created", zap.Int("complaint_id", created.ID), zap.String("actor", actor.Email))
	s.publishEvent(ctx, events.NewEvent(events.EventComplaintCreated, created.ID, actorOf(actor),
		events.ComplaintCreatedPayload{Title: created.Title, CustomerEmail: created.Customer.Email},
		created.CreatedAt))
	return &created, nil
}

// Update replaces title and description. Customers may only touch their own
// complaints.
func (s *ComplaintService) Update(ctx context.Context, actor domain.User, id int, title, description string) (*domain.Complaint, error) {
	var updated domain.Complaint
	err := s.complaints.Mutate(ctx, func(complaints []domain.Complaint) ([]domain.Complaint, error) {
		idx := indexOf(complaints, id)
		if idx < 0 {
			return nil, domain.ErrComplaintNotFound
		}
		if actor.Role != domain.RoleAdmin && !complaints[idx].OwnedBy(actor.Email) {
			return nil, fmt.Errorf("%w: complaint belongs to another customer", domain.ErrForbidden)
		}
		if err := complaints[idx].Edit(title, description, s.now()); err != nil {
			return nil, err
		}
		updated = complaints[idx]
		return complaints, nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewEvent(events.EventComplaintUpdated, updated.ID, actorOf(actor),
		events.ComplaintUpdatedPayload{Title: updated.Title}, updated.UpdatedAt))
	return &updated, nil
}

// Delete removes a complaint. A customer deleting someone else's complaint
// sees the same not-found error as for an unknown id.
func (s *ComplaintService) Delete(ctx context.Context, actor domain.User, id int) error {
	err := s.complaints.Mutate(ctx, func(complaints []domain.Complaint) ([]domain.Complaint, error) {
		idx := indexOf(complaints, id)
		if idx < 0 || (actor.Role != domain.RoleAdmin && !complaints[idx].OwnedBy(actor.Email)) {
			return nil, domain.ErrComplaintNotFound
		}
		return append(complaints[:idx], complaints[idx+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("complaint deleted", zap.Int("complaint_id", id), zap.String("actor", actor.Email))
	s.publishEvent(ctx, events.NewEvent(events.EventComplaintDeleted, id, actorOf(actor), nil, s.now()))
	return nil
}

// Resolve applies an admin resolution with status defaulting to closed.
func (s *ComplaintService) Resolve(ctx context.Context, actor domain.User, id int, input ResolveInput) (*domain.Complaint, error) {
	status := domain.ComplaintStatusClosed
	if input.Status != nil {
		parsed, err := domain.ParseComplaintStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	var (
		resolved  domain.Complaint
		oldStatus domain.ComplaintStatus
	)
	err := s.complaints.Mutate(ctx, func(complaints []domain.Complaint) ([]domain.Complaint, error) {
		idx := indexOf(complaints, id)
		if idx < 0 {
			return nil, domain.ErrComplaintNotFound
		}
		oldStatus = complaints[idx].Status
		if err := complaints[idx].Resolve(status, input.Comment, s.now()); err != nil {
			return nil, err
		}
		resolved = complaints[idx]
		return complaints, nil
	})
	if err != nil {
		return nil, err
	}

	payload := events.ComplaintResolvedPayload{
		OldStatus:     oldStatus,
		NewStatus:     resolved.Status,
		CustomerEmail: resolved.Customer.Email,
	}
	if resolved.Comment != nil {
		payload.Comment = *resolved.Comment
	}
	s.logger.Info("complaint resolved",
		zap.Int("complaint_id", resolved.ID),
		zap.String("status", string(resolved.Status)),
		zap.String("actor", actor.Email))
	s.publishEvent(ctx, events.NewEvent(events.EventComplaintResolved, resolved.ID, actorOf(actor), payload, resolved.UpdatedAt))
	return &resolved, nil
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func indexOf(complaints []domain.Complaint, id int) int {
	for i := range complaints {
		if complaints[i].ID == id {
			return i
		}
	}
	return -1
}

func actorOf(user domain.User) events.Actor {
	return events.Actor{Email: user.Email, Role: user.Role}
}
