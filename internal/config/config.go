// Package config loads runtime configuration from environment variables.
package config

import (
    "log"
    "os"
    "strconv"
)

// Config holds every value the server needs at startup.  Required
// variables are enforced by must(); missing ones abort the process
// before any listener is opened.
type Config struct {
    Env            string // APP_ENV (dev/test/prod)
    Port           string // APP_PORT
    DBUser         string // DB_USER
    DBPass         string // DB_PASS (empty allowed)
    DBHost         string // DB_HOST
    DBPort         string // DB_PORT
    DBName         string // DB_NAME
    JWTSecret      string // JWT_SECRET
    AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
    RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
    BcryptCost     int    // BCRYPT_COST
}

// Load reads the environment and returns a fully populated Config.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
    }
}

// must returns the value of a required environment variable or exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is must() with an integer conversion.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
