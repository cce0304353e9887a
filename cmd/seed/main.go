// seed inserts development sample data for local testing. Run via ./scripts/seed.sh.
// Idempotent: each user, the dev organization (by slug) and the member invitation are only
// created when missing.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tenancy-control-plane/backend/internal/config"
	"tenancy-control-plane/backend/internal/db"
	invitationrepo "tenancy-control-plane/backend/internal/invitation/repository"
	invitationservice "tenancy-control-plane/backend/internal/invitation/service"
	membershipdomain "tenancy-control-plane/backend/internal/membership/domain"
	membershiprepo "tenancy-control-plane/backend/internal/membership/repository"
	orgrepo "tenancy-control-plane/backend/internal/organization/repository"
	orgservice "tenancy-control-plane/backend/internal/organization/service"
	"tenancy-control-plane/backend/internal/security"
	userdomain "tenancy-control-plane/backend/internal/user/domain"
	userrepo "tenancy-control-plane/backend/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	devUserID    = "dev-user-001"
	devUser2ID   = "dev-user-002"
	memberEmail  = "member@example.com"
	devOrgSlug   = "acme-dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)

	now := time.Now().UTC().Truncate(time.Microsecond)
	for _, u := range []*userdomain.User{
		{ID: devUserID, Email: devUserEmail, Name: "Dev User", CreatedAt: now},
		{ID: devUser2ID, Email: memberEmail, Name: "Member User", CreatedAt: now},
	} {
		existing, err := users.GetByEmail(ctx, u.Email)
		if err != nil {
			log.Fatalf("seed check %s: %v", u.Email, err)
		}
		if existing != nil {
			continue
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	org, err := orgs.GetOrganizationBySlug(ctx, devOrgSlug)
	if err != nil {
		log.Fatalf("seed check %s: %v", devOrgSlug, err)
	}
	if org == nil {
		orgSvc := orgservice.NewOrganizationService(orgs, users, nil, nil)
		created, err := orgSvc.CreateOrganization(ctx, devUserID, orgservice.CreateOrganizationInput{
			Slug:        devOrgSlug,
			Name:        "Acme Dev",
			Description: "Development organization",
			Contact:     map[string]any{"email": devUserEmail},
		})
		if err != nil {
			log.Fatalf("create org: %v", err)
		}
		org = created.Org
	}
	fmt.Printf("Organization: %s (%s)\n", org.Slug, org.ID)

	member, err := memberships.GetMembershipByUserAndOrg(ctx, devUser2ID, org.ID)
	if err != nil {
		log.Fatalf("seed check membership: %v", err)
	}
	if member != nil {
		log.Printf("%s is already a member of %s. Skipping invitation.", memberEmail, devOrgSlug)
	} else {
		invSvc := invitationservice.NewInvitationService(invitationrepo.NewPostgresRepository(conn), users, orgs, nil, nil, nil,
			invitationservice.Options{RequireConfirmation: cfg.OrgInvitationConfirm})
		inv, err := invSvc.CreateInvitation(ctx, devUserID, invitationservice.CreateInvitationInput{
			Role:   string(membershipdomain.RoleWorker),
			UserID: devUser2ID,
			OrgID:  org.ID,
		})
		if err != nil {
			log.Fatalf("create invitation: %v", err)
		}
		fmt.Printf("Invitation key for %s: %s (%s)\n", memberEmail, inv.Invitation.Key, inv.State())
	}

	log.Println("Seed completed successfully.")
	printDevToken(cfg)
}

// printDevToken prints a bearer token for the dev user when JWT_PRIVATE_KEY is configured.
func printDevToken(cfg *config.Config) {
	if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
		return
	}
	tokens, err := security.NewTokenProviderFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}
	token, expiresAt, err := tokens.IssueAccess(devUserID)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Printf("Dev access token (expires %s):\n%s\n", expiresAt.Format(time.RFC3339), token)
}
