package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/store"
)

// UsersCollection is the store collection name for users.
const UsersCollection = "users"

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Mutate runs fn under the users lock and persists its result.
	Mutate(ctx context.Context, fn func([]domain.User) ([]domain.User, error)) error
}

type userRecord struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashed_password"`
	Role           string `json:"role"`
}

type userRepository struct {
	coll *store.Collection[userRecord]
}

// NewUserRepository returns a repository backed by the "users" collection.
func NewUserRepository(backend store.Backend) UserRepository {
	return &userRepository{coll: store.NewCollection[userRecord](backend, UsersCollection)}
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	records, err := r.coll.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return usersFromRecords(records)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].HasEmail(email) {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
}

func (r *userRepository) Mutate(ctx context.Context, fn func([]domain.User) ([]domain.User, error)) error {
	return r.coll.Update(ctx, func(records []userRecord) ([]userRecord, error) {
		users, err := usersFromRecords(records)
		if err != nil {
			return nil, err
		}
		next, err := fn(users)
		if err != nil {
			return nil, err
		}
		return usersToRecords(next), nil
	})
}

func usersFromRecords(records []userRecord) ([]domain.User, error) {
	users := make([]domain.User, 0, len(records))
	for _, rec := range records {
		role, err := domain.ParseRole(rec.Role)
		if err != nil {
			return nil, fmt.Errorf("user %d: stored role %q is not valid", rec.ID, rec.Role)
		}
		users = append(users, domain.User{
			ID:           rec.ID,
			Username:     rec.Username,
			Email:        rec.Email,
			PasswordHash: rec.HashedPassword,
			Role:         role,
		})
	}
	return users, nil
}

func usersToRecords(users []domain.User) []userRecord {
	records := make([]userRecord, 0, len(users))
	for _, u := range users {
		records = append(records, userRecord{
			ID:             u.ID,
			Username:       u.Username,
			Email:          u.Email,
			HashedPassword: u.PasswordHash,
			Role:           string(u.Role),
		})
	}
	return records
}
