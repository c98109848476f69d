package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/admin"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/complaints"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/config"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/database"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/meals"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/metrics"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/server"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	envFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vitalplate-api",
		Short: "VitalPlate meal subscription backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newGrantAdminCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to configuration file")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a dotenv file loaded before reading the environment")
	flags.String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	flags.String("database-url", defaults.GetString("database.url"), "SQLite path or postgres:// URL")
	flags.String("google-client-id", defaults.GetString("google.client_id"), "Google OAuth client ID")
	flags.String("google-tokeninfo-url", defaults.GetString("google.tokeninfo_url"), "Google tokeninfo endpoint")
	flags.String("jwt-algorithm", defaults.GetString("jwt.algorithm"), "Session token HMAC algorithm (HS256, HS384, HS512)")
	flags.Int("jwt-expiration-minutes", defaults.GetInt("jwt.expiration_minutes"), "Access token lifetime in minutes")
	flags.StringSlice("cors-allowed-origins", defaults.GetStringSlice("cors.allowed_origins"), "Origins allowed by CORS")
	flags.String("environment", defaults.GetString("environment"), "Deployment environment (development, staging, production)")
	flags.String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	flags.String("jwt-secret-key", "", "Session token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.url", "database-url")
	bindFlag(cmd, "google.client_id", "google-client-id")
	bindFlag(cmd, "google.tokeninfo_url", "google-tokeninfo-url")
	bindFlag(cmd, "jwt.algorithm", "jwt-algorithm")
	bindFlag(cmd, "jwt.expiration_minutes", "jwt-expiration-minutes")
	bindFlag(cmd, "cors.allowed_origins", "cors-allowed-origins")
	bindFlag(cmd, "environment", "environment")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "jwt.secret_key", "jwt-secret-key")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.Environment)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseURL, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	collectors := metrics.New()
	deps, err := buildDependencies(appConfig, db, collectors, logger)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("environment", appConfig.Environment),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildDependencies(appConfig config.AppConfig, db *gorm.DB, collectors *metrics.Metrics, logger *zap.Logger) (server.Dependencies, error) {
	userService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return server.Dependencies{}, err
	}
	mealService, err := meals.NewService(meals.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return server.Dependencies{}, err
	}
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceConfig{
		Database:   db,
		IDProvider: subscriptions.UUIDProvider{},
		Logger:     logger,
	})
	if err != nil {
		return server.Dependencies{}, err
	}
	complaintService, err := complaints.NewService(complaints.ServiceConfig{
		Database:    db,
		Assignments: mealService,
		Logger:      logger,
	})
	if err != nil {
		return server.Dependencies{}, err
	}
	adminService, err := admin.NewService(admin.ServiceConfig{
		Users:         userService,
		Subscriptions: subscriptionService,
		Complaints:    complaintService,
		Logger:        logger,
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	tokens, err := auth.NewTokenService(auth.TokenServiceConfig{
		SigningSecret: []byte(appConfig.JWTSecretKey),
		Algorithm:     appConfig.JWTAlgorithm,
		AccessTTL:     appConfig.AccessTokenTTL(),
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	verifier, err := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
		Audience:     appConfig.GoogleClientID,
		TokenInfoURL: appConfig.GoogleTokenInfoURL,
		Logger:       logger,
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorConfig{
		Verifier:   verifier,
		Tokens:     tokens,
		Identities: userService,
		Observer:   collectors,
		Logger:     logger,
	})
	if err != nil {
		return server.Dependencies{}, err
	}

	return server.Dependencies{
		Authenticator:  authenticator,
		Users:          userService,
		Meals:          mealService,
		Subscriptions:  subscriptionService,
		Complaints:     complaintService,
		Admin:          adminService,
		Metrics:        collectors,
		AllowedOrigins: appConfig.AllowedOrigins,
		Logger:         logger,
	}, nil
}

func newGrantAdminCommand() *cobra.Command {
	var (
		email  string
		revoke bool
	)
	cmd := &cobra.Command{
		Use:   "grant-admin",
		Short: "Grant or revoke the admin flag of an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return grantAdmin(cmd.Context(), email, !revoke)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address of the user")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Remove the admin flag instead of setting it")
	if err := cmd.MarkFlagRequired("email"); err != nil {
		panic(err)
	}
	return cmd
}

func grantAdmin(ctx context.Context, email string, isAdmin bool) error {
	v := viper.GetViper()
	logger, err := logging.NewLogger(v.GetString("log.level"), v.GetString("environment"))
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(v.GetString("database.url"), logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	userService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}
	user, err := userService.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	if err := userService.SetAdmin(ctx, user.ID, isAdmin); err != nil {
		return err
	}
	logger.Info("admin flag updated", zap.Uint("user_id", user.ID), zap.Bool("is_admin", isAdmin))
	return nil
}
