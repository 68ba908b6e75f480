package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/himalfrost/store-api/internal/application/auth"
	"github.com/himalfrost/store-api/internal/application/order"
	"github.com/himalfrost/store-api/internal/application/ota"
	"github.com/himalfrost/store-api/internal/application/product"
	"github.com/himalfrost/store-api/internal/application/user"
	"github.com/himalfrost/store-api/internal/config"
	"github.com/himalfrost/store-api/internal/infrastructure/awsconf"
	"github.com/himalfrost/store-api/internal/infrastructure/dynamo"
	"github.com/himalfrost/store-api/internal/infrastructure/google"
	jwtinfra "github.com/himalfrost/store-api/internal/infrastructure/jwt"
	s3infra "github.com/himalfrost/store-api/internal/infrastructure/s3"
	"github.com/himalfrost/store-api/internal/infrastructure/smtp"
	"github.com/himalfrost/store-api/internal/infrastructure/sns"
	"github.com/himalfrost/store-api/internal/pkg/otp"
	"github.com/himalfrost/store-api/internal/pkg/phone"
	"github.com/himalfrost/store-api/internal/pkg/pricing"
	"github.com/himalfrost/store-api/internal/pkg/ratelimit"
	transporthttp "github.com/himalfrost/store-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	setupLogger(cfg)
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.IsProduction() && cfg.JWTSecret == "dev-secret-change-me" {
		return errors.New("JWT_SECRET must be set in production")
	}

	awsCfg, err := awsconf.Load(ctx, cfg, "")
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users, cfg.DynamoTables.Identities)
	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	verificationRepo := dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.PhoneVerifications)
	productRepo := dynamo.NewProductRepo(dynamoClient, cfg.DynamoTables.Products)
	orderRepo := dynamo.NewOrderRepo(dynamoClient, cfg.DynamoTables.Orders)
	appVersionRepo := dynamo.NewAppVersionRepo(dynamoClient, cfg.DynamoTables.AppVersions)

	s3Store := s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName, cfg.S3PublicURL)

	mailer := smtp.NewMailer(smtp.Settings{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})

	// SMS delivery is optional; without it codes are only logged.
	var smsSender sns.SMSSender
	if cfg.SNSRegion != "" {
		snsCfg, err := awsconf.Load(ctx, cfg, cfg.SNSRegion)
		if err != nil {
			return fmt.Errorf("load sns config: %w", err)
		}
		smsSender = sns.NewSender(snsCfg, cfg.SNSSenderID)
	} else {
		slog.Warn("SNS_REGION not set, SMS delivery disabled")
	}

	tokens, err := jwtinfra.NewProvider(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	codeLimit := ratelimit.Policy{Name: "otp-request", Limit: cfg.CodeRequestsLimit, Window: time.Minute}
	verifyLimit := ratelimit.Policy{Name: "otp-verify", Limit: cfg.VerifyLimit, Window: 15 * time.Minute}
	authLimit := ratelimit.Policy{Name: "auth", Limit: 30, Window: time.Minute}
	var codeRL, verifyRL, authRL ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		codeRL = ratelimit.NewRedis(rdb, codeLimit)
		verifyRL = ratelimit.NewRedis(rdb, verifyLimit)
		authRL = ratelimit.NewRedis(rdb, authLimit)
	} else {
		codeRL = ratelimit.NewMemory(ctx, codeLimit)
		verifyRL = ratelimit.NewMemory(ctx, verifyLimit)
		authRL = ratelimit.NewMemory(ctx, authLimit)
	}

	var googleVerifier *google.Verifier
	if cfg.GoogleClientID != "" {
		googleVerifier = google.NewVerifier(cfg.GoogleClientID)
	}

	authDeps := auth.ServiceDeps{
		Verifications: verificationRepo,
		Users:         userRepo,
		Sessions:      sessionRepo,
		Tokens:        tokens,
		SMS:           smsSender,
		Hasher:        otp.NewHasher(cfg.OTPSecret),
		CodeLimiter:   codeRL,
		Settings: auth.Settings{
			PhoneRegion: cfg.PhoneRegion,
			CodeTTL:     cfg.OTPTTL,
			MaxAttempts: cfg.OTPMaxAttempts,
			Production:  cfg.IsProduction(),
			AdminPhones: adminPhones(cfg),
			AdminEmails: cfg.AdminEmails,
		},
	}
	if googleVerifier != nil {
		authDeps.Google = googleVerifier
	}

	userSvc := user.NewService(user.ServiceDeps{UserRepo: userRepo})
	deps := &transporthttp.Deps{
		Auth:     auth.NewService(authDeps),
		Users:    userSvc,
		Products: product.NewService(product.ServiceDeps{ProductRepo: productRepo, Images: s3Store}),
		Orders: order.NewService(order.ServiceDeps{
			OrderRepo: orderRepo,
			Profiles:  userSvc,
			Mailer:    mailer,
			Pricing: pricing.Rules{
				TaxRate:           cfg.TaxRate,
				ShippingFee:       cfg.ShippingFee,
				FreeShippingAbove: cfg.FreeShippingAbove,
			},
		}),
		OTA: ota.NewService(ota.ServiceDeps{
			Versions: appVersionRepo,
			Objects:  s3Store,
			Settings: ota.Settings{
				Title:     cfg.OTATitle,
				BundleID:  cfg.OTABundleID,
				IPAKey:    cfg.OTAIPAKey,
				StaticDir: cfg.OTAStaticDir,
			},
		}),
		VerifyLimiter: verifyRL,
		AuthLimiter:   authRL,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// adminPhones normalizes ADMIN_PHONES so they compare equal to stored E.164 numbers.
func adminPhones(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.AdminPhones))
	for _, raw := range cfg.AdminPhones {
		p, err := phone.Normalize(raw, cfg.PhoneRegion)
		if err != nil {
			slog.Warn("ignoring invalid admin phone", "phone", raw, "err", err)
			continue
		}
		out = append(out, p)
	}
	return out
}
