// Package config provides configuration management for the rule engine.
//
// Configuration is loaded from environment variables and validated on startup.
// All configuration options have sensible defaults for development: an
// in-memory store on port 3000 with no Redis dependency.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg)
package config
