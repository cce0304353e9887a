// Server runs the organization, membership and invitation HTTP API and the gRPC health service.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/health"

	"tenancy-control-plane/backend/internal/audit"
	audithandler "tenancy-control-plane/backend/internal/audit/handler"
	auditrepo "tenancy-control-plane/backend/internal/audit/repository"
	"tenancy-control-plane/backend/internal/config"
	"tenancy-control-plane/backend/internal/db"
	"tenancy-control-plane/backend/internal/db/migrate"
	healthhandler "tenancy-control-plane/backend/internal/health/handler"
	invitationhandler "tenancy-control-plane/backend/internal/invitation/handler"
	"tenancy-control-plane/backend/internal/invitation/notify"
	invitationrepo "tenancy-control-plane/backend/internal/invitation/repository"
	invitationservice "tenancy-control-plane/backend/internal/invitation/service"
	membershiphandler "tenancy-control-plane/backend/internal/membership/handler"
	membershiprepo "tenancy-control-plane/backend/internal/membership/repository"
	membershipservice "tenancy-control-plane/backend/internal/membership/service"
	orghandler "tenancy-control-plane/backend/internal/organization/handler"
	orgrepo "tenancy-control-plane/backend/internal/organization/repository"
	orgservice "tenancy-control-plane/backend/internal/organization/service"
	"tenancy-control-plane/backend/internal/security"
	"tenancy-control-plane/backend/internal/server"
	"tenancy-control-plane/backend/internal/server/middleware"
	"tenancy-control-plane/backend/internal/telemetry"
	telemetryotel "tenancy-control-plane/backend/internal/telemetry/otel"
	userrepo "tenancy-control-plane/backend/internal/user/repository"
)

const healthInterval = 10 * time.Second

// notifier is satisfied by both invitation notifiers.
type notifier interface {
	invitationservice.Notifier
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	metrics, err := telemetryotel.NewInstruments(providers.MeterProvider)
	if err != nil {
		log.Fatalf("otel: instruments: %v", err)
	}
	var events telemetry.EventEmitter
	if cfg.OTLPEndpoint != "" {
		events = telemetryotel.NewEventEmitter(providers.LoggerProvider)
	}

	if cfg.AutoMigrate {
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate: %v", err)
		}
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	var tokens *security.TokenProvider
	if cfg.JWTPublicKey != "" {
		tokens, err = security.NewTokenProviderFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
		if err != nil {
			log.Fatalf("jwt: %v", err)
		}
	} else {
		log.Println("jwt: JWT_PUBLIC_KEY not set; write routes will reject every request")
	}

	var invNotifier notifier = notify.NewLogNotifier(events)
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		kn, err := notify.NewKafkaNotifier(brokers, cfg.InvitationKafkaTopic)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		invNotifier = kn
		log.Printf("invitation notifications: kafka topic %s", cfg.InvitationKafkaTopic)
	}
	defer func() {
		if err := invNotifier.Close(); err != nil {
			log.Printf("notifier close: %v", err)
		}
	}()

	users := userrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	invitations := invitationrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditLogs, middleware.ClientIP)

	orgSvc := orgservice.NewOrganizationService(orgs, users, auditLogger, metrics)
	membershipSvc := membershipservice.NewMembershipService(memberships, orgs, auditLogger)
	invitationSvc := invitationservice.NewInvitationService(invitations, users, orgs, invNotifier, auditLogger, metrics,
		invitationservice.Options{RequireConfirmation: cfg.OrgInvitationConfirm})

	checker := healthhandler.NewChecker(conn)
	var tokenValidator middleware.TokenValidator
	if tokens != nil {
		tokenValidator = tokens
	}
	router := server.NewRouter(server.HTTPDeps{
		Organizations:  orghandler.NewHandler(orgSvc),
		Memberships:    membershiphandler.NewHandler(membershipSvc),
		Invitations:    invitationhandler.NewHandler(invitationSvc),
		AuditLogs:      audithandler.NewHandler(auditLogs),
		Health:         checker,
		Tokens:         tokenValidator,
		Events:         events,
		AllowedOrigins: cfg.AllowedOriginsList(),
		AccessLog:      true,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	healthSrv := health.NewServer()
	go checker.Watch(watchCtx, healthSrv, healthInterval)

	grpcSrv := server.NewGRPCServer(healthSrv)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		go func() {
			log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	stopWatch()
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownGrace())
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcSrv.GracefulStop()

	// Let async event emits finish before the providers flush.
	time.Sleep(telemetry.ShutdownDrainDuration)
	otelCtx, otelCancel := context.WithTimeout(ctx, 5*time.Second)
	defer otelCancel()
	if err := providers.Shutdown(otelCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("servers stopped")
}
