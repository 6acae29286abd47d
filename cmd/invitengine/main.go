package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/sunho/invitengine"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		runServe()
	case "new":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: invitengine new <site-name>")
			os.Exit(1)
		}
		if err := runNew(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("invitengine %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	app := invitengine.New(invitengine.SiteConfig{
		Name:          invitengine.EnvOr("SITE_NAME", "Wedding Invitations"),
		URL:           invitengine.EnvOr("SITE_URL", "http://localhost:3000"),
		Addr:          invitengine.EnvOr("ADDR", ":3000"),
		DataDir:       invitengine.EnvOr("DATA_DIR", "data/invitations"),
		LegacyDir:     invitengine.EnvOr("LEGACY_DIR", "."),
		AdminPassword: invitengine.MustEnv("ADMIN_PASSWORD"),
		SessionSecret: invitengine.MustEnv("ADMIN_SESSION_SECRET"),
		CookieSecure:  invitengine.EnvOr("COOKIE_SECURE", "false") == "true",
	})
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func printUsage() {
	fmt.Println(`invitengine - A multi-tenant wedding invitation server built with Go and Echo

Usage:
  invitengine <command> [arguments]

Commands:
  serve         Start the server (default)
  new <name>    Create a new deployment directory
  version       Print the invitengine version
  help          Show this help message

Examples:
  invitengine serve
  invitengine new our-wedding`)
}
