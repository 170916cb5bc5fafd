// Package config provides configuration loading and validation for cloudpad.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (CLOUDPAD_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with CLOUDPAD_ prefix:
//   - server.port → CLOUDPAD_SERVER_PORT
//   - auth.token → CLOUDPAD_AUTH_TOKEN
//   - bucket.type → CLOUDPAD_BUCKET_TYPE
//   - s3.secret_key → CLOUDPAD_S3_SECRET_KEY
//
// # Configuration Structure
//
// The Config struct contains:
//   - Env: "prod" switches logging to JSON
//   - Server: port, max_upload_size, read and write timeouts
//   - Auth: token or token_file, and the header carrying it
//   - Bucket: backend type (memory, local, s3, minio)
//   - Storage and Database: content root and metadata database of the local backend
//   - S3 and MinIO: connection settings of the remote backends
//   - CORS: cross-origin resource sharing settings
//   - Metrics: Prometheus endpoint
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - One of auth.token and auth.token_file must be set
//   - Bucket type must be memory, local, s3, or minio
//   - s3.bucket and s3.region are required for the s3 backend
//   - minio.endpoint and minio.bucket are required for the minio backend
//   - Log level must be debug, info, warn, or error
package config
