package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Secrets stay opaque strings; the admin
// allowlist is parsed once here so the rest of the program never touches
// raw env values.
type Config struct {
	Env           string  // application environment (e.g. "dev", "prod")
	Port          string  // HTTP port the webhook server listens on
	DataDir       string  // directory for the file document backend
	StoreBackend  string  // "file", "mysql" or "redis"
	AdminIDs      []int64 // static admin allowlist
	AuthPassword  string  // initial shared password (ignored once rotated)
	WebhookSecret string  // secret the transport must echo in a header
	BotAPIURL     string  // base URL of the outbound bot API (empty -> log-only sender)
	BotToken      string  // bot credential appended to the API URL
	ExportSecret  string  // secret signing CSV export links
	ExportTTLMin  int     // export link lifetime in minutes
	PublicURL     string  // externally reachable base URL for export links
	BcryptCost    int     // bcrypt cost for the shared password hash
	SelfService   bool    // allow users without an assignment to pick a checklist
	DBUser        string  // MySQL backend: username
	DBPass        string  // MySQL backend: password (optional)
	DBHost        string  // MySQL backend: host
	DBPort        string  // MySQL backend: port
	DBName        string  // MySQL backend: database name
}

// Load reads configuration from the environment. Required variables are
// enforced by must(): a missing shared password or webhook secret is the
// one fatal error class, caught before the server starts.
func Load() Config {
	return Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          must("APP_PORT"),
		DataDir:       envStr("DATA_DIR", "./data"),
		StoreBackend:  strings.ToLower(envStr("STORE_BACKEND", "file")),
		AdminIDs:      parseIDList(os.Getenv("ADMIN_IDS")),
		AuthPassword:  must("AUTH_PASSWORD"),
		WebhookSecret: must("WEBHOOK_SECRET"),
		BotAPIURL:     os.Getenv("BOT_API_URL"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		ExportSecret:  envStr("EXPORT_SECRET", ""),
		ExportTTLMin:  envInt("EXPORT_TTL_MIN", 15),
		PublicURL:     os.Getenv("PUBLIC_URL"),
		BcryptCost:    envInt("BCRYPT_COST", 10),
		SelfService:   envBool("SELF_SERVICE_ENABLED", true),
		DBUser:        os.Getenv("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// parseIDList splits a comma-separated list of numeric chat IDs. Entries
// that do not parse are skipped with a warning rather than aborting
// startup.
func parseIDList(raw string) []int64 {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("config: skipping bad admin id %q", part)
			continue
		}
		out = append(out, id)
	}
	return out
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}
