package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LushakDataSystems/contact_svc/internal/httpapi"
	"github.com/LushakDataSystems/contact_svc/internal/mailer"
	"github.com/LushakDataSystems/contact_svc/internal/recaptcha"
	"github.com/LushakDataSystems/contact_svc/internal/storage"
	"github.com/LushakDataSystems/contact_svc/internal/throttle"
	"github.com/LushakDataSystems/contact_svc/internal/validation"
)

const (
	commandUseName              = "server"
	commandShortDescription     = "Run the contact website server"
	commandLongDescription      = "Launch the marketing site and contact submission HTTP server"
	missingConfigurationMessage = "missing required configuration"
	loggerCreationErrorMessage  = "logger"
	logEventListening           = "listening"
	logFieldAddress             = "addr"

	flagNameApplicationAddress     = "app-addr"
	flagNameRecaptchaSecretKey     = "recaptcha-secret-key"
	flagNameRecaptchaSiteKey       = "recaptcha-site-key"
	flagNameSMTPHost               = "smtp-host"
	flagNameSMTPPort               = "smtp-port"
	flagNameSMTPUsername           = "smtp-user"
	flagNameSMTPPassword           = "smtp-pass"
	flagNameContactRecipient       = "contact-recipient"
	flagNameThrottleDataSourceName = "throttle-db-dsn"

	flagUsageApplicationAddress     = "address for the HTTP server to listen on"
	flagUsageRecaptchaSecretKey     = "shared secret for bot-defense token verification"
	flagUsageRecaptchaSiteKey       = "public site key served to the contact page"
	flagUsageSMTPHost               = "SMTP relay host"
	flagUsageSMTPPort               = "SMTP relay port"
	flagUsageSMTPUsername           = "SMTP relay username and notification mailbox"
	flagUsageSMTPPassword           = "SMTP relay password"
	flagUsageContactRecipient       = "recipient for contact notifications, defaults to the SMTP username"
	flagUsageThrottleDataSourceName = "optional SQLite DSN for the shared throttle counting store"

	environmentKeyApplicationAddress     = "APP_ADDR"
	environmentKeyRecaptchaSecretKey     = "RECAPTCHA_SECRET_KEY"
	environmentKeyRecaptchaSiteKey       = "RECAPTCHA_SITE_KEY"
	environmentKeySMTPHost               = "EMAIL_HOST"
	environmentKeySMTPPort               = "EMAIL_PORT"
	environmentKeySMTPUsername           = "EMAIL_USER"
	environmentKeySMTPPassword           = "EMAIL_PASS"
	environmentKeyContactRecipient       = "CONTACT_RECIPIENT"
	environmentKeyThrottleDataSourceName = "THROTTLE_DB_DSN"

	defaultApplicationAddress = ":8080"
	defaultSMTPPort           = 587

	contactRoutePath     = "/api/contact"
	healthRoutePath      = "/healthz"
	homeRoutePath        = "/"
	aboutRoutePath       = "/about"
	servicesRoutePath    = "/services"
	portfolioRoutePath   = "/portfolio"
	contactPageRoutePath = "/contact"

	corsOriginWildcard      = "*"
	corsHeaderContentType   = "Content-Type"
	httpMethodGet           = "GET"
	httpMethodOptions       = "OPTIONS"
	httpMethodPost          = "POST"
	readHeaderTimeoutSecond = 5

	// Comfortably above the attachment cap so the pipeline, not the body
	// limit, decides oversized submissions.
	maxRequestBodyBytes = 32 * 1024 * 1024

	loggerContextOpenDatabase    = "open_db"
	loggerContextAutoMigrate     = "migrate"
	loggerContextServer          = "server"
	loggerContextValidator       = "validator"
	unexpectedArgumentsMessage   = "unexpected command arguments"
	commandInitializationFailure = "failed to configure command"
	flagNotDefinedMessage        = "flag %s not defined"
	environmentConfigurationErr  = "failed to apply environment configuration"
)

var (
	corsAllowedMethods = []string{httpMethodPost, httpMethodGet, httpMethodOptions}
	corsAllowedHeaders = []string{corsHeaderContentType}
	corsExposedHeaders = []string{corsHeaderContentType}
	corsAllowOrigins   = []string{corsOriginWildcard}
)

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress     string
	RecaptchaSecretKey     string
	RecaptchaSiteKey       string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	ContactRecipient       string
	ThrottleDataSourceName string
}

// DatabaseOpener opens the shared throttle counting store.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.SetDefault(environmentKeyApplicationAddress, defaultApplicationAddress)
	application.configurationLoader.SetDefault(environmentKeySMTPPort, defaultSMTPPort)
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	commandFlags.String(flagNameApplicationAddress, defaultApplicationAddress, flagUsageApplicationAddress)
	commandFlags.String(flagNameRecaptchaSecretKey, "", flagUsageRecaptchaSecretKey)
	commandFlags.String(flagNameRecaptchaSiteKey, "", flagUsageRecaptchaSiteKey)
	commandFlags.String(flagNameSMTPHost, "", flagUsageSMTPHost)
	commandFlags.Int(flagNameSMTPPort, defaultSMTPPort, flagUsageSMTPPort)
	commandFlags.String(flagNameSMTPUsername, "", flagUsageSMTPUsername)
	commandFlags.String(flagNameSMTPPassword, "", flagUsageSMTPPassword)
	commandFlags.String(flagNameContactRecipient, "", flagUsageContactRecipient)
	commandFlags.String(flagNameThrottleDataSourceName, "", flagUsageThrottleDataSourceName)

	flagBindings := map[string]string{
		environmentKeyApplicationAddress:     flagNameApplicationAddress,
		environmentKeyRecaptchaSecretKey:     flagNameRecaptchaSecretKey,
		environmentKeyRecaptchaSiteKey:       flagNameRecaptchaSiteKey,
		environmentKeySMTPHost:               flagNameSMTPHost,
		environmentKeySMTPPort:               flagNameSMTPPort,
		environmentKeySMTPUsername:           flagNameSMTPUsername,
		environmentKeySMTPPassword:           flagNameSMTPPassword,
		environmentKeyContactRecipient:       flagNameContactRecipient,
		environmentKeyThrottleDataSourceName: flagNameThrottleDataSourceName,
	}

	for environmentKey, flagName := range flagBindings {
		if bindErr := application.bindFlag(commandFlags, environmentKey, flagName); bindErr != nil {
			return bindErr
		}
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, environmentKey, flagName); environmentErr != nil {
			return environmentErr
		}
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationErr, setErr)
	}

	return nil
}

func (application *ServerApplication) loadConfiguration() ServerConfig {
	serverConfig := ServerConfig{
		ApplicationAddress:     application.configurationLoader.GetString(environmentKeyApplicationAddress),
		RecaptchaSecretKey:     strings.TrimSpace(application.configurationLoader.GetString(environmentKeyRecaptchaSecretKey)),
		RecaptchaSiteKey:       strings.TrimSpace(application.configurationLoader.GetString(environmentKeyRecaptchaSiteKey)),
		SMTPHost:               strings.TrimSpace(application.configurationLoader.GetString(environmentKeySMTPHost)),
		SMTPPort:               application.configurationLoader.GetInt(environmentKeySMTPPort),
		SMTPUsername:           strings.TrimSpace(application.configurationLoader.GetString(environmentKeySMTPUsername)),
		SMTPPassword:           application.configurationLoader.GetString(environmentKeySMTPPassword),
		ContactRecipient:       strings.TrimSpace(application.configurationLoader.GetString(environmentKeyContactRecipient)),
		ThrottleDataSourceName: strings.TrimSpace(application.configurationLoader.GetString(environmentKeyThrottleDataSourceName)),
	}
	if serverConfig.ContactRecipient == "" {
		serverConfig.ContactRecipient = serverConfig.SMTPUsername
	}
	return serverConfig
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.loadConfiguration()
	if validationErr := ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	admitter, admitterErr := application.buildAdmitter(serverConfig, logger)
	if admitterErr != nil {
		return admitterErr
	}

	contactValidator, validatorErr := validation.NewContactValidator()
	if validatorErr != nil {
		return fmt.Errorf("%s: %w", loggerContextValidator, validatorErr)
	}

	verifier := recaptcha.NewSiteVerifier(serverConfig.RecaptchaSecretKey)
	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:      serverConfig.SMTPHost,
		Port:      serverConfig.SMTPPort,
		Username:  serverConfig.SMTPUsername,
		Password:  serverConfig.SMTPPassword,
		Recipient: serverConfig.ContactRecipient,
	}, logger)

	contactHandlers := httpapi.NewContactHandlers(logger, admitter, contactValidator, verifier, sender)
	pageHandlers := httpapi.NewPageHandlers(logger, serverConfig.RecaptchaSiteKey)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	router.Use(httpapi.LimitRequestBody(maxRequestBodyBytes))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsAllowOrigins,
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	registerRoutes(router, pageHandlers, contactHandlers)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSecond * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func (application *ServerApplication) buildAdmitter(serverConfig ServerConfig, logger *zap.Logger) (throttle.Admitter, error) {
	if serverConfig.ThrottleDataSourceName == "" {
		return throttle.NewMemoryAdmitter(), nil
	}

	database, openErr := application.databaseOpener(storage.Config{
		DriverName:     storage.DriverNameSQLite,
		DataSourceName: serverConfig.ThrottleDataSourceName,
	})
	if openErr != nil {
		return nil, fmt.Errorf("%s: %w", loggerContextOpenDatabase, openErr)
	}
	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		return nil, fmt.Errorf("%s: %w", loggerContextAutoMigrate, migrateErr)
	}

	databaseAdmitter, admitterErr := throttle.NewDatabaseAdmitter(database)
	if admitterErr != nil {
		return nil, admitterErr
	}

	logger.Info("throttle_store_shared", zap.String("driver", storage.DriverNameSQLite))
	return databaseAdmitter, nil
}

func ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.RecaptchaSecretKey == "" {
		missingParameters = append(missingParameters, flagNameRecaptchaSecretKey)
	}
	if configuration.SMTPHost == "" {
		missingParameters = append(missingParameters, flagNameSMTPHost)
	}
	if configuration.SMTPUsername == "" {
		missingParameters = append(missingParameters, flagNameSMTPUsername)
	}
	if configuration.SMTPPassword == "" {
		missingParameters = append(missingParameters, flagNameSMTPPassword)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	_ = godotenv.Load()

	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
