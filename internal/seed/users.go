package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dfi/internal/store"
	"dfi/pkg/types"

	"github.com/k0kubun/pp/v3"
)

type fakeUserSeed struct {
	ID            string
	Email         string
	GivenName     string
	FamilyName    string
	WalletAddress string
	Verified      bool
}

var fakeUsers = []fakeUserSeed{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "ava.williams+seed1@example.com", GivenName: "Ava", FamilyName: "Williams", WalletAddress: "0x1111111111111111111111111111111111111111", Verified: true},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "liam.johnson+seed2@example.com", GivenName: "Liam", FamilyName: "Johnson", WalletAddress: "0x2222222222222222222222222222222222222222", Verified: true},
	{ID: "33333333-3333-3333-3333-333333333333", Email: "noah.brown+seed3@example.com", GivenName: "Noah", FamilyName: "Brown", Verified: false},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "mia.davis+seed4@example.com", GivenName: "Mia", FamilyName: "Davis", Verified: false},
	{ID: "55555555-5555-5555-5555-555555555555", Email: "elijah.garcia+seed5@example.com", GivenName: "Elijah", FamilyName: "Garcia", WalletAddress: "0x5555555555555555555555555555555555555555", Verified: false},
}

func SeedFakeUsers(ctx context.Context, userRepo *store.UserRepository) error {
	seeded := 0
	for _, fakeUser := range fakeUsers {
		_, err := userRepo.User(ctx, fakeUser.ID)
		if err != nil && !errors.Is(err, types.ErrUserNotFound) {
			return fmt.Errorf("failed to fetch fake user %s: %w", fakeUser.ID, err)
		}

		if err := userRepo.UpsertIdentity(ctx, fakeUser.ID, fakeUser.Email, fakeUser.GivenName, fakeUser.FamilyName); err != nil {
			return fmt.Errorf("failed to upsert fake user %s: %w", fakeUser.ID, err)
		}

		if fakeUser.WalletAddress != "" {
			if err := userRepo.UpdateWalletAddress(ctx, fakeUser.ID, fakeUser.WalletAddress); err != nil {
				return fmt.Errorf("failed to set wallet address for fake user %s: %w", fakeUser.ID, err)
			}
		}

		if fakeUser.Verified {
			outcome := types.VerificationOutcome{
				IsVerified:           true,
				VerifiedAt:           time.Now(),
				VerificationDocument: "seed-document.jpg",
				VerificationVideo:    "seed-video.mp4",
			}
			if err := userRepo.UpdateVerification(ctx, fakeUser.ID, outcome); err != nil {
				return fmt.Errorf("failed to mark fake user %s verified: %w", fakeUser.ID, err)
			}
		}

		seeded++
	}

	pp.Println("Fake users seeded:", seeded)
	return nil
}
