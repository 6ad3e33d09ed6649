package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dfi/internal/utils"
	"dfi/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "dfi.users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID string) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := psql().
		Insert(userTableName).
		SetMap(utils.StructToMap(user)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepository) UpsertIdentity(ctx context.Context, userID, email, givenName, familyName string) error {
	now := time.Now()

	var emailPtr *string
	trimmedEmail := strings.TrimSpace(email)
	if trimmedEmail != "" {
		emailPtr = &trimmedEmail
	}

	var givenNamePtr *string
	trimmedGivenName := strings.TrimSpace(givenName)
	if trimmedGivenName != "" {
		givenNamePtr = &trimmedGivenName
	}

	var familyNamePtr *string
	trimmedFamilyName := strings.TrimSpace(familyName)
	if trimmedFamilyName != "" {
		familyNamePtr = &trimmedFamilyName
	}

	query, args, err := psql().
		Insert(userTableName).
		Columns("id", "email", "given_name", "family_name", "created_at", "updated_at").
		Values(userID, emailPtr, givenNamePtr, familyNamePtr, now, now).
		Suffix("ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, given_name = EXCLUDED.given_name, family_name = EXCLUDED.family_name, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert identity user query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert user identity fields: %w", err)
	}

	return nil
}

// UpdateVerification applies a merge-style partial update of the
// verification fields, leaving every other column untouched.
func (r *UserRepository) UpdateVerification(ctx context.Context, userID string, outcome types.VerificationOutcome) error {
	query, args, err := psql().
		Update(userTableName).
		SetMap(map[string]any{
			"is_verified":           outcome.IsVerified,
			"verified_at":           outcome.VerifiedAt,
			"verification_document": outcome.VerificationDocument,
			"verification_video":    outcome.VerificationVideo,
			"updated_at":            time.Now(),
		}).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update verification query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user verification: %w", err)
	}

	return nil
}

func (r *UserRepository) UpdateWalletAddress(ctx context.Context, userID, address string) error {
	query, args, err := psql().
		Update(userTableName).
		SetMap(map[string]any{
			"wallet_address": address,
			"updated_at":     time.Now(),
		}).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update wallet address query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user wallet address: %w", err)
	}

	return nil
}
