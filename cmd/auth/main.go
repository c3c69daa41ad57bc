package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/aussiebroadwan/techpost/internal/auth/app"
)

func main() {
	flags := pflag.NewFlagSet("auth", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML config file (env: AUTH_CONFIG_FILE)")
	port := flags.IntP("port", "p", 0, "HTTP listen port (env: PORT)")
	logLevel := flags.String("log-level", "", "log level: debug, info, warn, error (env: LOG_LEVEL)")
	backend := flags.String("revocation-backend", "", "revocation store: sqlite, valkey or memory (env: AUTH_REVOCATION_BACKEND)")
	dbFile := flags.String("database", "", "SQLite database file (env: AUTH_DATABASE_FILE)")
	valkeyAddr := flags.String("valkey-addr", "", "valkey address (env: VALKEY_ADDR)")
	showVersion := flags.BoolP("version", "v", false, "print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(app.BuildVersion)
		return
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Flags win over the file and the environment.
	if flags.Changed("port") {
		cfg.Port = *port
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if flags.Changed("revocation-backend") {
		cfg.RevocationBackend = *backend
	}
	if flags.Changed("database") {
		cfg.DatabaseFile = *dbFile
	}
	if flags.Changed("valkey-addr") {
		cfg.Valkey.Address = *valkeyAddr
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
