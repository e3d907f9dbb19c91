// adminctl is the operator CLI: grant admin rights, list accounts, delete
// accounts. It talks to the database directly with the same configuration as
// the server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appconfig "github.com/acturus1/Web-project-yandex/config"
	"github.com/acturus1/Web-project-yandex/models"
	"github.com/acturus1/Web-project-yandex/services"
)

func openUserService() (*services.UserService, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return services.NewUserService(db, logger, cfg.SessionTTL()), nil
}

func main() {
	cmd := &cli.Command{
		Name:  "adminctl",
		Usage: "Administration of blog user accounts",
		Commands: []*cli.Command{
			{
				Name:      "create-admin",
				Usage:     "Grant admin rights to a user",
				ArgsUsage: "<username>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					username := cmd.Args().First()
					if username == "" {
						return fmt.Errorf("usage: adminctl create-admin <username>")
					}
					users, err := openUserService()
					if err != nil {
						return err
					}
					if err := users.SetAdmin(ctx, username, true); err != nil {
						return fmt.Errorf("user %s: %w", username, err)
					}
					fmt.Printf("User %s is now an administrator\n", username)
					return nil
				},
			},
			{
				Name:  "list-users",
				Usage: "List all users",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					users, err := openUserService()
					if err != nil {
						return err
					}
					var all []models.User
					if err := users.DB.WithContext(ctx).Order("id ASC").Find(&all).Error; err != nil {
						return fmt.Errorf("failed to list users: %w", err)
					}
					for _, u := range all {
						role := "regular"
						if u.IsAdmin {
							role = "admin"
						}
						fmt.Printf("%d: %s (%s)\n", u.ID, u.Username, role)
					}
					return nil
				},
			},
			{
				Name:      "delete-user",
				Usage:     "Delete a user account",
				ArgsUsage: "<username>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					username := cmd.Args().First()
					if username == "" {
						return fmt.Errorf("usage: adminctl delete-user <username>")
					}
					users, err := openUserService()
					if err != nil {
						return err
					}
					if err := users.Delete(ctx, username); err != nil {
						return fmt.Errorf("user %s: %w", username, err)
					}
					fmt.Printf("User %s deleted\n", username)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
