// Command seed creates the demo accounts used in development. Accounts whose
// email already exists are left untouched.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/eduflowhub/eduflow/internal/auth/app"
	"github.com/eduflowhub/eduflow/internal/auth/domain"
	"github.com/eduflowhub/eduflow/internal/auth/service"
	"github.com/eduflowhub/eduflow/pkg/cryptox"
	"github.com/eduflowhub/eduflow/pkg/slogx"
)

var demoUsers = []service.CreateUserInput{
	{
		Name:     "Admin User",
		Email:    "admin@eduflow.com",
		Password: "Admin@123456",
		Role:     domain.RoleAdmin,
		Avatar:   "https://api.dicebear.com/7.x/avataaars/svg?seed=admin",
	},
	{
		Name:     "Nguyễn Văn Minh",
		Email:    "minh.teacher@eduflow.com",
		Password: "Teacher@123",
		Role:     domain.RoleTeacher,
		Avatar:   "https://api.dicebear.com/7.x/avataaars/svg?seed=teacher1",
	},
	{
		Name:     "Trần Thị Mai",
		Email:    "mai.student@eduflow.com",
		Password: "Student@123",
		Role:     domain.RoleStudent,
		Avatar:   "https://api.dicebear.com/7.x/avataaars/svg?seed=student1",
	},
}

func main() {
	printCreds := flag.Bool("print-credentials", false, "print demo passwords after seeding")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.Env == "prod" {
		log.Fatal("refusing to seed demo accounts with ENV=prod")
	}

	logger := slogx.New(slogx.Config{
		Service: "eduflow-seed",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  "text",
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = slogx.WithContext(ctx, logger)

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	users := &service.UserService{
		Store: db,
		Passwords: cryptox.PasswordHasher{
			Algorithm:  cfg.PasswordAlgorithm,
			BcryptCost: cfg.BcryptRounds,
		},
	}

	created := 0
	for _, in := range demoUsers {
		u, err := users.CreateUser(ctx, in)
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			logger.Info("demo user exists, skipping", "email", in.Email)
			continue
		case err != nil:
			logger.Error("failed to create demo user", "email", in.Email, "error", err)
			os.Exit(1)
		}
		created++
		logger.Info("demo user created", "id", u.ID, "email", u.Email, "role", u.Role)
	}
	logger.Info("seeding finished", "created", created, "total", len(demoUsers))

	if *printCreds {
		for _, in := range demoUsers {
			log.Printf("%-28s %s", in.Email, in.Password)
		}
	}
}
