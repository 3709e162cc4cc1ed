// Package config defines the configuration contract and handles loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyPort            = "PORT"
	KeyPublicURL       = "PUBLIC_URL"
	KeyAdminToken      = "ADMIN_TOKEN"
	KeyTelegramToken   = "TELEGRAM_TOKEN"
	KeyAdminIDs        = "ADMIN_IDS"
	KeyStoreBackend    = "STORE_BACKEND"
	KeyDBFile          = "DB_FILE"
	KeyMongoURI        = "MONGO_URI"
	KeyMongoDB         = "MONGO_DB"
	KeyMongoCollection = "MONGO_COLLECTION"
	KeyAppEnv          = "APP_ENV"
	KeyLogLevel        = "LOG_LEVEL"

	// Legacy aliases still honored when the canonical key is unset.
	KeyLegacyHost     = "HOST"
	KeyLegacyBotToken = "BOT_TOKEN"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Allowed store backends.
	BackendFile  = "file"
	BackendMongo = "mongo"

	// Defaults for optional settings.
	DefaultAppEnv          = EnvProduction
	DefaultLogLevel        = "info"
	DefaultPort            = 3000
	DefaultAdminToken      = "admin-token"
	DefaultStoreBackend    = BackendFile
	DefaultDBFile          = "db.json"
	DefaultMongoCollection = "panel"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the service must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the service.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyPort,
		Example:     strconv.Itoa(DefaultPort),
		Default:     strconv.Itoa(DefaultPort),
		Description: "HTTP listen port for the panel and API.",
	},
	{
		Key:         KeyPublicURL,
		Example:     "https://panel.example.com",
		Default:     "http://localhost:" + strconv.Itoa(DefaultPort),
		Description: "Public base URL used to build panel links sent by the bot.",
		Notes:       KeyLegacyHost + " is accepted when " + KeyPublicURL + " is unset.",
	},
	{
		Key:         KeyAdminToken,
		Example:     "s3cret",
		Default:     DefaultAdminToken,
		Description: "Shared secret gating the admin page and admin API.",
		Notes:       "Always override the default outside local development.",
	},
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Description: "Telegram Bot Token issued by BotFather.",
		Notes:       "Optional; the bot is disabled when empty. " + KeyLegacyBotToken + " is accepted as an alias.",
	},
	{
		Key:         KeyAdminIDs,
		Example:     "123456789,987654321",
		Description: "Comma-separated Telegram user ids seeded into the admins collection on startup.",
		Notes:       "Existing admins are never removed.",
	},
	{
		Key:         KeyStoreBackend,
		Example:     BackendFile + " / " + BackendMongo,
		Default:     DefaultStoreBackend,
		Description: "Where the aggregate document is persisted.",
	},
	{
		Key:         KeyDBFile,
		Example:     DefaultDBFile,
		Default:     DefaultDBFile,
		Description: "JSON file path for the file backend.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Description: "MongoDB connection string.",
		Notes:       "Required when " + KeyStoreBackend + "=" + BackendMongo + ".",
	},
	{
		Key:         KeyMongoDB,
		Example:     "panelbot",
		Description: "MongoDB database name.",
		Notes:       "Required when " + KeyStoreBackend + "=" + BackendMongo + ".",
	},
	{
		Key:         KeyMongoCollection,
		Example:     DefaultMongoCollection,
		Default:     DefaultMongoCollection,
		Description: "MongoDB collection holding the aggregate document.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	Port            int
	PublicURL       string
	AdminToken      string
	TelegramToken   string
	AdminIDs        []int64
	StoreBackend    string
	DBFile          string
	MongoURI        string
	MongoDB         string
	MongoCollection string
	AppEnv          string
	LogLevel        string
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:          firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		Port:            DefaultPort,
		AdminToken:      firstNonEmpty(os.Getenv(KeyAdminToken), DefaultAdminToken),
		TelegramToken:   firstNonEmpty(os.Getenv(KeyTelegramToken), os.Getenv(KeyLegacyBotToken)),
		StoreBackend:    firstNonEmpty(strings.ToLower(os.Getenv(KeyStoreBackend)), DefaultStoreBackend),
		DBFile:          firstNonEmpty(os.Getenv(KeyDBFile), DefaultDBFile),
		MongoURI:        strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:         strings.TrimSpace(os.Getenv(KeyMongoDB)),
		MongoCollection: firstNonEmpty(os.Getenv(KeyMongoCollection), DefaultMongoCollection),
		LogLevel:        firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	portRaw := strings.TrimSpace(os.Getenv(KeyPort))
	if portRaw != "" {
		port, parseErr := strconv.Atoi(portRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyPort, parseErr)
		}
		if port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("%s must be between 1 and 65535", KeyPort)
		}
		cfg.Port = port
	}

	adminIDs, err := parseIDList(os.Getenv(KeyAdminIDs))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyAdminIDs, err)
	}
	cfg.AdminIDs = adminIDs

	publicURL := firstNonEmpty(os.Getenv(KeyPublicURL), os.Getenv(KeyLegacyHost), "http://localhost:"+strconv.Itoa(cfg.Port))
	if err := validatePublicURL(publicURL); err != nil {
		return Config{}, err
	}
	cfg.PublicURL = strings.TrimRight(publicURL, "/")

	switch cfg.StoreBackend {
	case BackendFile:
	case BackendMongo:
		if err := validateMongo(cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("invalid %s: must be %q or %q", KeyStoreBackend, BackendFile, BackendMongo)
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// Describe renders the configuration contract as help text, one key per block.
func Describe() string {
	var b strings.Builder
	b.WriteString("Environment variables:\n")
	for _, spec := range Contract {
		fmt.Fprintf(&b, "  %s\n    %s\n", spec.Key, spec.Description)
		if spec.Default != "" {
			fmt.Fprintf(&b, "    default: %s\n", spec.Default)
		} else if spec.Example != "" {
			fmt.Fprintf(&b, "    example: %s\n", spec.Example)
		}
		if spec.Notes != "" {
			fmt.Fprintf(&b, "    %s\n", spec.Notes)
		}
	}
	return b.String()
}

// BotEnabled reports whether a Telegram token is configured.
func (c Config) BotEnabled() bool {
	return strings.TrimSpace(c.TelegramToken) != ""
}

// UsesDefaultAdminToken reports whether the admin token was left at its default.
func (c Config) UsesDefaultAdminToken() bool {
	return c.AdminToken == DefaultAdminToken
}

// FormatRedacted renders the configuration with secrets masked, suitable for
// printing on startup checks.
func FormatRedacted(c Config) string {
	lines := []string{
		"app_env: " + c.AppEnv,
		"log_level: " + c.LogLevel,
		"port: " + strconv.Itoa(c.Port),
		"public_url: " + c.PublicURL,
		"admin_token: " + maskSecret(c.AdminToken),
		"telegram_token: " + maskSecret(c.TelegramToken),
		"admin_ids: " + strconv.Itoa(len(c.AdminIDs)) + " configured",
		"store_backend: " + c.StoreBackend,
	}

	switch c.StoreBackend {
	case BackendMongo:
		lines = append(lines,
			"mongo_uri: "+redactURI(c.MongoURI),
			"mongo_db: "+c.MongoDB,
			"mongo_collection: "+c.MongoCollection,
		)
	default:
		lines = append(lines, "db_file: "+c.DBFile)
	}

	return strings.Join(lines, "\n")
}

func maskSecret(value string) string {
	if value == "" {
		return "(unset)"
	}
	if len(value) <= 4 {
		return "...redacted"
	}
	return value[:4] + "...redacted"
}

func redactURI(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "(invalid)"
	}
	parsed.User = nil
	return parsed.String()
}

func parseIDList(raw string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		if id == 0 {
			return nil, errors.New("ids must be non-zero")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validatePublicURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", KeyPublicURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", KeyPublicURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid %s: host is required", KeyPublicURL)
	}
	return nil
}

func validateMongo(cfg Config) error {
	missing := make([]string, 0)

	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}
	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variable(s) for %s=%s: %s", KeyStoreBackend, BackendMongo, strings.Join(missing, ", "))
	}

	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
		return fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
	}

	return nil
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
