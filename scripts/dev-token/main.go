// Command dev-token prints a signed access token for local testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/maxmaster/portal-server-go/internal/utils/jwt"
	"github.com/maxmaster/portal-server-go/pkg/config"
	"github.com/maxmaster/portal-server-go/pkg/types"
)

func main() {
	role := flag.String("role", string(types.UserTypeSuperAdmin), "role claim")
	companyID := flag.String("company", "", "optional company id claim")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint tokens in production")
	}

	userType := types.UserType(*role)
	if !userType.Valid() {
		log.Fatalf("unknown role %q", *role)
	}

	var company *uuid.UUID
	if *companyID != "" {
		id, err := uuid.Parse(*companyID)
		if err != nil {
			log.Fatalf("invalid company id: %v", err)
		}
		company = &id
	}

	token, err := jwt.GenerateAccessToken(uuid.New(), userType, company, cfg.JWTSecret, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	fmt.Println(token)
}
