// Package config handles loading and validating the device hub configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading an optional .env file next to the config file
//   - Overriding with GPIOHUB_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Broker credentials should be set via environment variables or the .env file
//   - The config and .env files should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Topic())
package config
