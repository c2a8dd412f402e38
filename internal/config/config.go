package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	// Record store: "sql" or "sheet".
	RecordDriver string
	DBDriver     string // sqlite|postgres, for RecordDriver=sql
	DBDSN        string
	SheetPath    string // for RecordDriver=sheet

	// Draft/session store: "memory" or "redis".
	DraftDriver string
	RedisURL    string
	DraftTTL    time.Duration

	DocsBasePath string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt
	StaffUser     string
	StaffPassHash string // bcrypt; staff login disabled when empty

	AttemptLimit int

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:  addr,
		PublicURL: os.Getenv("PUBLIC_URL"),

		RecordDriver: envOr("RECORD_DRIVER", "sql"),
		DBDriver:     envOr("DB_DRIVER", "sqlite"),
		DBDSN:        envOr("DB_DSN", ""),
		SheetPath:    envOr("SHEET_PATH", "./data/records.xlsx"),

		DraftDriver: envOr("DRAFT_DRIVER", "memory"),
		RedisURL:    envOr("REDIS_URL", "redis://localhost:6379/0"),
		DraftTTL:    envDur("DRAFT_TTL", 24*time.Hour),

		DocsBasePath: envOr("DOCS_BASE_PATH", "./data/documents"),

		AuthSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:  envOr("ADMIN_USER", "admin"),
		// Dev hash of "admin"; override in any real deployment.
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		StaffUser:     envOr("STAFF_USER", "staff"),
		StaffPassHash: os.Getenv("STAFF_PASS_HASH"),

		AttemptLimit: envInt("ATTEMPT_LIMIT", 3),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
