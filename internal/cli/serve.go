package cli

import (
	"context"
	"fmt"
	"time"

	"atscore/internal/config"
	"atscore/internal/observability"
	"atscore/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for resume scoring and screening",
	Long: `Start an HTTP server that scores uploaded resumes and screens them for recruiters.

Available endpoints:
- POST /resume/upload_resume: Score a resume (optional job_description)
- POST /analyze_all: Score a resume and report its profile handles
- POST /user/upload_resume: Score a resume and store it as the user's latest
- GET /user/history/{email}, GET /user/info/{email}, GET /user/all
- POST /admin/filter_uploaded_resumes: Bulk screening (?format=xlsx for Excel)
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification`,
	RunE: runServe,
}

var serveOffline bool

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "Score without the AI extractor (structured fields stay empty)")
}

// applyServeFlags copies explicitly set flags over the loaded configuration.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	v := viper.New()
	bindFlag := func(key, flagName string) {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}
	bindFlag("port", "port")
	bindFlag("host", "host")
	bindFlag("tls.mode", "tls-mode")
	bindFlag("tls.certfile", "cert-file")
	bindFlag("tls.keyfile", "key-file")
	bindFlag("tls.cafile", "ca-file")

	override := func(flagName, key string, dest *string) {
		if cmd.Flags().Changed(flagName) {
			*dest = v.GetString(key)
		}
	}
	override("port", "port", &cfg.Server.Port)
	override("host", "host", &cfg.Server.Host)
	override("tls-mode", "tls.mode", &cfg.Server.TLS.Mode)
	override("cert-file", "tls.certfile", &cfg.Server.TLS.CertFile)
	override("key-file", "tls.keyfile", &cfg.Server.TLS.KeyFile)
	override("ca-file", "tls.cafile", &cfg.Server.TLS.CAFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	applyServeFlags(cmd, cfg)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	st, err := buildStack(cmd.Context(), cfg, logger, stackOptions{
		Offline:       serveOffline,
		Persist:       true,
		Observability: om,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	deps := server.Dependencies{
		Processor:     st.processor,
		Store:         st.store,
		Observability: om,
	}
	if st.provider != nil {
		deps.AI = st.provider
	}

	logger.Info("Observability configured", "enabled", om.Enabled())
	return server.NewServer(cfg, server.ConfigFromApp(cfg, Version), deps, logger).Start(cmd.Context())
}
