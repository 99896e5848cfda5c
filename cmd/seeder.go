package cmd

import (
	"fmt"
	"log"

	"github.com/roadease/workshop-management/internal/auth"
	authPostgres "github.com/roadease/workshop-management/internal/auth/postgres"
	"github.com/roadease/workshop-management/internal/ids"
	"github.com/roadease/workshop-management/internal/security"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the bootstrap admin account",
	Long:  `Create the reserved "admin" account. Only legal while the account store is empty.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		if seedPassword == "" {
			log.Fatal("a password is required: pass --password")
		}
		report := security.ValidatePasswordStrength(seedPassword)
		if !report.Valid {
			log.Fatalf("password too weak: %v", report.Errors)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(cfg.Database, db)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		accounts := authPostgres.NewAccountRepository(gormDB)
		count, err := accounts.Count()
		if err != nil {
			log.Fatalf("failed to inspect account store: %v", err)
		}
		if count > 0 {
			fmt.Println("account store is not empty; refusing to seed")
			return
		}

		hasher := security.NewHasher(cfg.Security.BCryptCost, cfg.Security.LegacySalt)
		passwordHash, err := hasher.Hash(seedPassword)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		employeeID, err := security.GenerateEmployeeID(nil)
		if err != nil {
			log.Fatalf("failed to generate employee id: %v", err)
		}

		account := &auth.Account{
			ID:           ids.New(),
			EmployeeID:   employeeID,
			Name:         "Administrator",
			Username:     "admin",
			Role:         auth.RoleAdmin,
			Permissions:  auth.AllPermissions(),
			PasswordHash: passwordHash,
		}
		if err := accounts.Create(account); err != nil {
			log.Fatalf("failed to create admin account: %v", err)
		}

		fmt.Println("Seeded bootstrap admin account: admin /", employeeID)
	},
}
