package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/frahmantamala/tracker-workorders/internal/checklist"
	checklistPostgres "github.com/frahmantamala/tracker-workorders/internal/checklist/postgres"
	"github.com/frahmantamala/tracker-workorders/internal/user"
	userPostgres "github.com/frahmantamala/tracker-workorders/internal/user/postgres"
	"github.com/frahmantamala/tracker-workorders/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	seedAdminEmail    string
	seedAdminPassword string
	seedTemplates     bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with an admin account and default checklists",
	Long:  `Create the first admin user and the default checklist template of each vehicle category. Existing rows are left untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, gdb, err := openDatabase(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		ctx := context.Background()
		lg := logger.LoggerWrapper()
		userRepo := userPostgres.NewUserRepository(gdb, cfg.Database.QueryTimeout)
		switch _, err := userRepo.GetByEmail(ctx, user.NormalizeEmail(seedAdminEmail)); {
		case err == nil:
			lg.Info("admin user already exists", "email", seedAdminEmail)
		case errors.Is(err, user.ErrNotFound):
			users := user.NewService(userRepo, cfg.Security.BCryptCost, lg)
			if _, err := users.CreateUser(ctx, user.CreateUserDTO{
				Name:     "Administrator",
				Email:    seedAdminEmail,
				Password: seedAdminPassword,
				Role:     string(user.RoleAdmin),
			}); err != nil {
				log.Fatalf("failed to seed admin user: %v", err)
			}
			lg.Info("seeded admin user", "email", seedAdminEmail)
		default:
			log.Fatalf("failed to look up admin user: %v", err)
		}

		if !seedTemplates {
			return
		}
		templates := checklistPostgres.NewTemplateRepository(gdb, cfg.Database.QueryTimeout)
		for category, items := range defaultChecklists {
			existing, err := templates.Get(ctx, category)
			if err != nil {
				log.Fatalf("failed to read checklist %s: %v", category, err)
			}
			if existing != nil {
				lg.Info("checklist template already configured", "vehicle_category", category)
				continue
			}
			t := &checklist.Template{VehicleCategory: category, Items: items}
			if err := templates.Upsert(ctx, checklist.ToDataModel(t)); err != nil {
				log.Fatalf("failed to seed checklist %s: %v", category, err)
			}
			lg.Info("seeded checklist template", "vehicle_category", category, "items", len(items))
		}
	},
}

var defaultChecklists = map[string][]string{
	"car": {
		"Headlights", "Tail lights", "Turn signals", "Horn", "Dashboard panel",
		"Ignition", "Battery", "Windshield", "Side mirrors", "Bodywork",
	},
	"motorcycle": {
		"Headlight", "Tail light", "Turn signals", "Horn", "Instrument panel",
		"Ignition", "Battery", "Mirrors", "Fairing",
	},
	"truck": {
		"Headlights", "Tail lights", "Turn signals", "Horn", "Dashboard panel",
		"Ignition", "Batteries", "Tachograph", "Windshield", "Side mirrors", "Cab bodywork",
	},
	"machine": {
		"Work lights", "Horn", "Instrument panel", "Ignition", "Battery", "Hour meter", "Cab",
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@tracker.local", "email of the seeded admin")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "change-me-now", "password of the seeded admin")
	seedCmd.Flags().BoolVar(&seedTemplates, "templates", true, "also seed default checklist templates")
}
