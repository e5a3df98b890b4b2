// Command issue-token mints an access token for operators and integrations
// using the configured JWT secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/noah-isme/church-schedule-api/internal/models"
	"github.com/noah-isme/church-schedule-api/internal/service"
	"github.com/noah-isme/church-schedule-api/pkg/config"
	"github.com/noah-isme/church-schedule-api/pkg/logger"
)

func main() {
	userID := flag.String("user", "", "user or teacher id (required)")
	role := flag.String("role", string(models.RoleCoordinator), "SUPERADMIN, ADMIN, COORDINATOR or TEACHER")
	email := flag.String("email", "", "email claim")
	name := flag.String("name", "", "full name claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	userRole := models.UserRole(strings.ToUpper(*role))
	switch userRole {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleCoordinator, models.RoleTeacher:
	default:
		log.Fatalf("unknown role %q", *role)
	}

	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})
	token, expiresAt, err := auth.IssueToken(*userID, userRole, *email, *name)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
	logr.Sugar().Infow("token issued", "user", *userID, "role", userRole, "expires_at", expiresAt)
}
