package invitengine

import (
	"log"
	"os"
)

// SiteConfig holds all configuration for an invitengine site.
type SiteConfig struct {
	Name string // Site name shown in the admin chrome (default "Wedding Invitations")
	URL  string // Canonical URL (default "http://localhost:3000")

	Addr      string // Listen address (default ":3000")
	DataDir   string // Invitations root directory (default "data/invitations")
	LegacyDir string // Pre-multi-tenant layout scanned on first run (default ".")

	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true when serving over HTTPS
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Wedding Invitations"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DataDir == "" {
		c.DataDir = "data/invitations"
	}
	if c.LegacyDir == "" {
		c.LegacyDir = "."
	}
}

// EnvOr returns the value of the environment variable key, or fallback
// when empty. Convenience for main.go wiring.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally
// exits when it is not set.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("invitengine: required environment variable %s is not set", key)
	}
	return v
}
