package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
)

const (
	devCustomerID  = "cust_acme_dev_000000000001"
	devCustomer2ID = "cust_nordic_dev_00000000001"
	devDevice1ID   = "dev_thinkpad_dev_0000000001"
	devDevice2ID   = "dev_thinkpad_dev_0000000002"
	devDevice3ID   = "dev_macbook_dev_00000000001"
	devDevice4ID   = "dev_tablet_dev_000000000001"
)

type plansFile struct {
	Plans []planEntry `yaml:"plans"`
}

type planEntry struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Interval    string   `yaml:"interval"`
	Price       string   `yaml:"price"`
	Currency    string   `yaml:"currency"`
	DeviceLimit int      `yaml:"device_limit"`
	TrialDays   int      `yaml:"trial_days"`
	Features    []string `yaml:"features"`
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Writes go through the regular services so seeded data matches what
	// the API produces. Workflows are suppressed; no worker is needed.
	svcs := core.NewServices(pool, nil, events.NoopPublisher{}, nil, "dev-secret", "subtrack")
	ctx = core.WithSkipWorkflow(ctx)

	fmt.Println("Seeding subtrack database...")

	// --- Plan catalog from YAML ---

	fmt.Println("  Seeding plans from YAML...")
	if err := seedPlans(ctx, svcs); err != nil {
		fmt.Fprintf(os.Stderr, "seed plans: %v\n", err)
		os.Exit(1)
	}

	// --- Sample data ---

	var customerCount int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM customers").Scan(&customerCount); err != nil {
		fmt.Fprintf(os.Stderr, "count customers: %v\n", err)
		os.Exit(1)
	}
	if customerCount > 0 {
		fmt.Println("  Customers already present, skipping sample data.")
		fmt.Println()
		fmt.Println("Seed complete!")
		return
	}

	now := time.Now().UTC()

	fmt.Println("  Inserting customers...")
	berlin := "Torstrasse 140, 10119 Berlin"
	err = svcs.Customer.Create(ctx, &model.Customer{
		ID: devCustomerID, Name: "Acme GmbH", Email: "billing@acme.example",
		Country: "DE", Currency: "EUR", BillingAddress: &berlin,
		Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert customer: %v\n", err)
		os.Exit(1)
	}
	err = svcs.Customer.Create(ctx, &model.Customer{
		ID: devCustomer2ID, Name: "Nordic Retail AS", Email: "faktura@nordicretail.example",
		Country: "NO", Currency: "NOK",
		Status: model.CustomerActive, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert customer 2: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("  Inserting users...")
	if err := seedUser(ctx, pool, svcs, "admin@subtrack.test", "Admin", model.RoleAdmin); err != nil {
		fmt.Fprintf(os.Stderr, "insert admin user: %v\n", err)
		os.Exit(1)
	}
	if err := seedUser(ctx, pool, svcs, "viewer@subtrack.test", "Viewer", model.RoleViewer); err != nil {
		fmt.Fprintf(os.Stderr, "insert viewer user: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("  Inserting devices...")
	devices := []*model.Device{
		{ID: devDevice1ID, SerialNumber: "SN-1001", Model: "ThinkPad T14 Gen 5", Manufacturer: "Lenovo"},
		{ID: devDevice2ID, SerialNumber: "SN-1002", Model: "ThinkPad T14 Gen 5", Manufacturer: "Lenovo"},
		{ID: devDevice3ID, SerialNumber: "SN-1003", Model: "MacBook Air 13 M3", Manufacturer: "Apple"},
		{ID: devDevice4ID, SerialNumber: "SN-1004", Model: "Galaxy Tab S9", Manufacturer: "Samsung"},
	}
	for _, d := range devices {
		d.Status = model.DeviceInStock
		d.CreatedAt = now
		d.UpdatedAt = now
		if err := svcs.Device.Create(ctx, d); err != nil {
			fmt.Fprintf(os.Stderr, "insert device %s: %v\n", d.SerialNumber, err)
			os.Exit(1)
		}
	}

	fmt.Println("  Creating subscription...")
	plan, err := svcs.Plan.GetByCode(ctx, "fleet-pro")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fleet-pro plan: %v\n", err)
		os.Exit(1)
	}
	sub, err := svcs.Subscription.Create(ctx, devCustomerID, plan, 3, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create subscription: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("  Assigning devices...")
	assignees := map[string]string{
		devDevice1ID: "Kim Larsen",
		devDevice2ID: "Ola Nordmann",
	}
	for deviceID, assignee := range assignees {
		a := &model.Assignment{
			ID: platform.NewID(), DeviceID: deviceID, SubscriptionID: sub.ID,
			Assignee: assignee, Status: model.AssignmentActive,
			AssignedAt: now, CreatedAt: now, UpdatedAt: now,
		}
		if err := svcs.Assignment.Assign(ctx, a, devCustomerID); err != nil {
			fmt.Fprintf(os.Stderr, "assign device %s: %v\n", deviceID, err)
			os.Exit(1)
		}
	}

	fmt.Println("  Creating draft invoice...")
	inv := core.NewDraftInvoice(devCustomerID, &sub.ID, "EUR", decimal.NewFromInt(19))
	if err := svcs.Invoice.CreateDraft(ctx, inv); err != nil {
		fmt.Fprintf(os.Stderr, "create invoice: %v\n", err)
		os.Exit(1)
	}
	if _, err := svcs.LineItem.Add(ctx, inv.ID, "Fleet Pro subscription (3 seats)", 3, decimal.RequireFromString("49.00")); err != nil {
		fmt.Fprintf(os.Stderr, "add line item: %v\n", err)
		os.Exit(1)
	}
	if _, err := svcs.LineItem.Add(ctx, inv.ID, "Onboarding fee", 1, decimal.RequireFromString("150.00")); err != nil {
		fmt.Fprintf(os.Stderr, "add line item 2: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Seed complete!")
	fmt.Println()
	fmt.Println("  Customer: Acme GmbH (subscription on Fleet Pro, 2 devices out)")
	fmt.Println("  Customer: Nordic Retail AS")
	fmt.Println()
	fmt.Println("  Login: admin@subtrack.test / password")
	fmt.Println("  Login: viewer@subtrack.test / password")
}

// seedPlans reads seeds/dev/plans.yaml and inserts any plan whose code does
// not exist yet. Existing plans are left untouched so local price tweaks
// survive reseeding.
func seedPlans(ctx context.Context, svcs *core.Services) error {
	// Resolve path relative to this source file so it works regardless of cwd.
	_, thisFile, _, _ := runtime.Caller(0)
	yamlPath := filepath.Join(filepath.Dir(thisFile), "plans.yaml")

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return fmt.Errorf("read plans.yaml: %w", err)
	}

	var pf plansFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse plans.yaml: %w", err)
	}

	now := time.Now().UTC()
	for _, p := range pf.Plans {
		if existing, err := svcs.Plan.GetByCode(ctx, p.Code); err == nil {
			fmt.Printf("    Plan %s exists (%s), skipping\n", p.Code, existing.ID)
			continue
		}

		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("parse price for plan %s: %w", p.Code, err)
		}

		fmt.Printf("    Creating plan %s (%s)\n", p.Code, p.Name)
		desc := p.Description
		err = svcs.Plan.Create(ctx, &model.Plan{
			ID:          platform.NewID(),
			Code:        p.Code,
			Name:        p.Name,
			Description: &desc,
			Interval:    p.Interval,
			Price:       price,
			Currency:    p.Currency,
			DeviceLimit: p.DeviceLimit,
			TrialDays:   p.TrialDays,
			Features:    p.Features,
			Status:      model.PlanActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("create plan %s: %w", p.Code, err)
		}
	}

	return nil
}

// seedUser creates a user with the fixed dev password unless the email is
// already taken.
func seedUser(ctx context.Context, pool *pgxpool.Pool, svcs *core.Services, email, displayName, role string) error {
	var n int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM users WHERE email = $1", email).Scan(&n); err != nil {
		return fmt.Errorf("check user %s: %w", email, err)
	}
	if n > 0 {
		fmt.Printf("    User %s exists, skipping\n", email)
		return nil
	}

	now := time.Now().UTC()
	return svcs.Auth.CreateUser(ctx, &model.User{
		ID:          platform.NewID(),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, "password")
}
