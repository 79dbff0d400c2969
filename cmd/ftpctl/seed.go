package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/ftp-kitchen/api/internal/database"
	"github.com/ftp-kitchen/api/internal/enum"
	"github.com/ftp-kitchen/api/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin user, the seasonal menu, and optional demo guests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context())
		},
	}
	cmd.Flags().String("admin-email", "admin@ftp.local", "admin email (env SEED_EMAIL)")
	cmd.Flags().String("admin-password", "", "admin password (env SEED_PASSWORD)")
	cmd.Flags().String("admin-name", "Kitchen Admin", "admin full name (env SEED_NAME)")
	cmd.Flags().Int("demo-guests", 0, "number of fake guest profiles to create")
	viper.BindPFlag("seed.email", cmd.Flags().Lookup("admin-email"))
	viper.BindPFlag("seed.password", cmd.Flags().Lookup("admin-password"))
	viper.BindPFlag("seed.name", cmd.Flags().Lookup("admin-name"))
	viper.BindPFlag("seed.demo_guests", cmd.Flags().Lookup("demo-guests"))
	viper.BindEnv("seed.email", "SEED_EMAIL")
	viper.BindEnv("seed.password", "SEED_PASSWORD")
	viper.BindEnv("seed.name", "SEED_NAME")
	return cmd
}

func runSeed(ctx context.Context) error {
	password := viper.GetString("seed.password")
	if password == "" {
		password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	queries := database.New(pool)

	admin, err := seedAdmin(ctx, queries, viper.GetString("seed.email"), password, viper.GetString("seed.name"))
	if err != nil {
		return err
	}

	if err := seedMenu(ctx, queries); err != nil {
		return err
	}

	if n := viper.GetInt("seed.demo_guests"); n > 0 {
		guests := service.NewGuestService(queries, service.NewAuditRecorder(queries))
		created := seedDemoGuests(ctx, guests, admin.ID, n)
		log.Printf("Created %d demo guests", created)
	}

	log.Println("Seed completed successfully")
	log.Printf("Admin ID: %s", admin.ID)
	return nil
}

// seedAdmin creates the admin user if it doesn't exist.
func seedAdmin(ctx context.Context, queries *database.Queries, email, password, fullName string) (database.User, error) {
	existing, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", email, existing.ID)
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.User{}, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return database.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := queries.CreateUser(ctx, database.CreateUserParams{
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       fullName,
		Role:           enum.UserRoleAdmin,
	})
	if err != nil {
		return database.User{}, fmt.Errorf("insert user: %w", err)
	}

	log.Printf("Created admin user '%s' (ID: %s)", email, user.ID)
	return user, nil
}

// seedMenu loads the seasonal menu into an empty menu table.
func seedMenu(ctx context.Context, queries *database.Queries) error {
	existing, err := queries.ListMenuItems(ctx, database.ListMenuItemsParams{IncludeUnavailable: true})
	if err != nil {
		return fmt.Errorf("list menu items: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("Menu already has %d items, skipping", len(existing))
		return nil
	}

	for _, item := range seasonalMenu {
		pricing, err := json.Marshal(item.pricing)
		if err != nil {
			return fmt.Errorf("encode pricing for %s: %w", item.name, err)
		}
		if _, err := queries.CreateMenuItem(ctx, database.CreateMenuItemParams{
			Name:        item.name,
			Description: optionalText(item.description),
			Category:    item.category,
			Pricing:     pricing,
			Allergens:   item.allergens,
			IsAvailable: true,
		}); err != nil {
			return fmt.Errorf("insert menu item %s: %w", item.name, err)
		}
	}

	log.Printf("Seeded %d menu items", len(seasonalMenu))
	return nil
}

// GuestCreator is satisfied by *service.GuestService.
type GuestCreator interface {
	CreateGuest(ctx context.Context, req service.CreateGuestRequest) (database.Guest, error)
}

// seedDemoGuests creates up to n fake guests and returns how many were
// created. Duplicate emails are skipped.
func seedDemoGuests(ctx context.Context, guests GuestCreator, createdBy uuid.UUID, n int) int {
	fake := faker.New()
	created := 0
	for i := 0; i < n; i++ {
		contact := enum.ContactMethodEmail
		if fake.Bool() {
			contact = enum.ContactMethodPhone
		}
		_, err := guests.CreateGuest(ctx, service.CreateGuestRequest{
			CreatedBy:              createdBy,
			Name:                   fake.Person().Name(),
			Email:                  fake.Internet().Email(),
			Phone:                  fake.Phone().Number(),
			Address:                fake.Address().Address(),
			PreferredContactMethod: contact,
		})
		if err != nil {
			if errors.Is(err, service.ErrGuestEmailExists) {
				continue
			}
			log.Printf("WARN: create demo guest: %v", err)
			continue
		}
		created++
	}
	return created
}

type menuPrice struct {
	ServingSize string          `json:"serving_size"`
	Price       decimal.Decimal `json:"price"`
}

type menuSeed struct {
	name        string
	description string
	category    string
	pricing     []menuPrice
	allergens   []string
}

func price(size string, amount int64) menuPrice {
	return menuPrice{ServingSize: size, Price: decimal.NewFromInt(amount)}
}
