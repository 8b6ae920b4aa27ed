// Package config provides configuration management for the item engine.
//
// Configuration is read from an optional YAML file, completed with defaults,
// overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("itemengine.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ITEMENGINE_SECTION_FIELD:
//
//   - ITEMENGINE_PARSER_STRICT overrides parser.strict
//   - ITEMENGINE_SESSION_SEED overrides session.seed
//   - ITEMENGINE_SANITIZER_BLOCKED_SCHEMES overrides sanitizer.blocked_schemes (comma separated)
//   - ITEMENGINE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Every problem is reported at once:
//
//	configuration validation failed with 2 errors:
//	  - parser.max_expression_depth: max expression depth must be positive
//	  - telemetry.logging.format: invalid logging format "xml": must be 'json', 'text', or 'console'
//
// # Example Configuration
//
//	parser:
//	  max_document_bytes: 1048576
//	  strict: true
//	session:
//	  template_constraint_retries: 50
//	sanitizer:
//	  extra_url_attributes: ["poster"]
//	telemetry:
//	  logging:
//	    level: "debug"
//	    format: "text"
//
// The engine packages never read the singleton: the CLI initializes it and
// passes the resulting *Config down explicitly.
package config
