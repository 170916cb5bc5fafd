package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudpad/cloudpad/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "cloudpad",
	Short:   "File API over an object storage bucket",
	Long: `cloudpad serves a small HTTP API to list, read, write, delete and
rename files in an object storage bucket, guarded by a shared access token.

The bucket can be in memory, a local directory with a metadata database,
Amazon S3 (or any S3-compatible service), or MinIO.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("bucket-type", "", "bucket backend: memory, local, s3, minio (default: local, env: CLOUDPAD_BUCKET_TYPE)")
	rootCmd.PersistentFlags().String("token", "", "shared access token (env: CLOUDPAD_AUTH_TOKEN)")
	rootCmd.PersistentFlags().String("token-file", "", "file holding the shared access token (env: CLOUDPAD_AUTH_TOKEN_FILE)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: CLOUDPAD_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: cloudpad.db, env: CLOUDPAD_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory path (default: ./data, env: CLOUDPAD_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: CLOUDPAD_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
