//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hugh/tarviz/internal/auth"
	"github.com/hugh/tarviz/internal/database"
	"github.com/hugh/tarviz/internal/database/models"
	"github.com/hugh/tarviz/internal/pipeline"
	"github.com/hugh/tarviz/pkg/config"
	"github.com/hugh/tarviz/pkg/util"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()

	agency := ensureOrg(db, "Tarviz Digimart", "tarviz-digimart")
	adminEmail := envOr("ADMIN_EMAIL", "admin@tarviz.com")
	ensureUser(db, agency, adminEmail, envOr("ADMIN_PASSWORD", "Admin@123"), "Admin", models.RoleAdmin)

	client := ensureOrg(db, "Acme Traders", "acme-traders")
	demoEmail := envOr("DEMO_EMAIL", "client@example.com")
	if created := ensureUser(db, client, demoEmail, envOr("DEMO_PASSWORD", "Client@123"), "Priya", models.RoleClient); created {
		if err := pipeline.NewRepository(db).SeedDemo(ctx, client.ID); err != nil {
			log.Fatalf("failed to seed demo board: %v", err)
		}
		fmt.Println("Demo board seeded for Acme Traders")
	}

	services := []models.ServiceItem{
		{Code: "SRV-001", Name: "Social Media Management", Description: "Monthly content calendar and posting", Price: 15000, Category: "Social Media"},
		{Code: "SRV-002", Name: "SEO Starter", Description: "On-page SEO for up to 10 pages", Price: 12000, Category: "SEO"},
	}
	for _, s := range services {
		if err := db.Where(models.ServiceItem{Code: s.Code}).FirstOrCreate(&s).Error; err != nil {
			log.Fatalf("failed to seed service %s: %v", s.Code, err)
		}
	}

	date := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}
	invoices := []models.Invoice{
		{Number: "INV-2023-001", IssuedOn: date("2023-10-01"), Amount: 15000, Status: models.InvoicePaid, Service: "Spark Package"},
		{Number: "INV-2023-002", IssuedOn: date("2023-11-01"), Amount: 15000, Status: models.InvoicePaid, Service: "Spark Package"},
		{Number: "INV-2023-003", IssuedOn: date("2023-12-01"), DueOn: date("2023-12-16"), Amount: 30000, Status: models.InvoicePending, Service: "Radiance Package"},
	}
	for _, inv := range invoices {
		inv.OrganizationID = client.ID
		if err := db.Where(models.Invoice{Number: inv.Number}).FirstOrCreate(&inv).Error; err != nil {
			log.Fatalf("failed to seed invoice %s: %v", inv.Number, err)
		}
	}
	subs := []models.Subscription{
		{Code: "SUB-123", PackageName: "Radiance Package", StartDate: date("2023-10-01"), RenewalDate: date("2024-01-01"), Status: models.SubscriptionActive},
		{Code: "SUB-456", PackageName: "SEO Maintenance", StartDate: date("2023-10-01"), RenewalDate: date("2024-10-01"), Status: models.SubscriptionActive},
	}
	for _, sub := range subs {
		sub.OrganizationID = client.ID
		if err := db.Where(models.Subscription{Code: sub.Code}).FirstOrCreate(&sub).Error; err != nil {
			log.Fatalf("failed to seed subscription %s: %v", sub.Code, err)
		}
	}

	var count int64
	db.Model(&models.CompanySettings{}).Count(&count)
	if count == 0 {
		settings := models.DefaultCompanySettings()
		if err := db.Create(&settings).Error; err != nil {
			log.Fatalf("failed to seed company settings: %v", err)
		}
	}

	fmt.Printf("Seed complete. Admin: %s, demo client: %s\n", adminEmail, demoEmail)
}

func ensureOrg(db *gorm.DB, name, slug string) *models.Organization {
	var org models.Organization
	err := db.Where("slug = ?", slug).First(&org).Error
	if err == nil {
		return &org
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("failed to look up organization %s: %v", slug, err)
	}

	org = models.Organization{Name: name, Slug: slug}
	if err := db.Create(&org).Error; err != nil {
		log.Fatalf("failed to create organization %s: %v", slug, err)
	}
	return &org
}

// ensureUser creates the user unless the email is taken and reports whether it did.
func ensureUser(db *gorm.DB, org *models.Organization, email, password, firstName, role string) bool {
	var count int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		fmt.Printf("User already exists: %s\n", email)
		return false
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	user := models.User{
		Email:          email,
		PasswordHash:   hash,
		Salutation:     "Mr",
		FirstName:      firstName,
		OrganizationID: org.ID,
		Role:           role,
		IsActive:       true,
		EmailVerified:  true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user %s: %v", email, err)
	}
	fmt.Printf("Created %s user: %s\n", role, email)
	return true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
