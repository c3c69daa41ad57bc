package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/techpost/internal/auth/domain"
	"github.com/aussiebroadwan/techpost/internal/auth/store"
	"github.com/aussiebroadwan/techpost/internal/auth/store/drivers/sqlite/gen"
)

type usersRepo struct {
	q   *gen.Queries
	now func() time.Time
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row, err := r.q.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByProvider(
	ctx context.Context,
	provider, providerID string,
) (domain.User, error) {
	row, err := r.q.GetUserByProvider(ctx, gen.GetUserByProviderParams{
		Provider:   provider,
		ProviderID: providerID,
	})
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	provider := u.Provider
	if provider == "" {
		provider = domain.ProviderNone
	}
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}

	created := u.CreatedAt
	if created.IsZero() {
		created = r.now().UTC()
	}
	updated := u.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	err := r.q.CreateUser(ctx, gen.CreateUserParams{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Email:        u.Email,
		Provider:     provider,
		ProviderID:   u.ProviderID,
		Role:         role.String(),
		CreatedAt:    created,
		UpdatedAt:    updated,
	})
	return mapConstraint(err)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	n, err := r.q.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
