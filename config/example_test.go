package config_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/cloudpad/cloudpad/config"
)

func ExampleLoad() {
	_ = os.Setenv("CLOUDPAD_AUTH_TOKEN", "example-token")
	defer func() { _ = os.Unsetenv("CLOUDPAD_AUTH_TOKEN") }()

	// Load with defaults only (no config file)
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Port: %d, Bucket: %s\n", cfg.Server.Port, cfg.Bucket.Type)
	// Output: Port: 8787, Bucket: local
}

func ExampleWithContext() {
	cfg := &config.Config{Server: config.ServerConfig{Port: 8787}}

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved port: %d\n", retrieved.Server.Port)
	// Output: Retrieved port: 8787
}
