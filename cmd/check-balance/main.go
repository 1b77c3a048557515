package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nerdops/internal/billing"
	"nerdops/internal/config"
	"nerdops/internal/logging"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	verbose    bool
	apiKey     string
	baseURL    string
	authScheme string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "check-balance",
		Short: "Print the remaining credits balance for an API key",
		Long: `Performs one authenticated GET against {base_url}/v1/credits/balance and
prints the balance in dollars and cents next to a redacted copy of the key.

Lookup failures (network errors, non-2xx responses, unparseable bodies) are
printed and the command still exits 0.

Example:
  check-balance --api-key sk-... --base-url https://api.z.ai`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckBalance(cmd, opts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultConfigPath, "Path to nerdops.yaml")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Billing API key (or set NERDOPS_BILLING_API_KEY env)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Billing API base URL")
	cmd.Flags().StringVar(&opts.authScheme, "auth-scheme", "", `Authorization scheme prefix ("" sends the raw key)`)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Request timeout (0 disables)")

	return cmd
}

func runCheckBalance(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, cfg)

	if err := logging.Initialize(cfg.Logging, opts.verbose); err != nil {
		return err
	}
	if err := cfg.ValidateBilling(); err != nil {
		return err
	}
	logging.Boot("check-balance starting (config=%s)", opts.configPath)
	logging.BootDebug("check-balance: base_url=%s timeout=%s", cfg.Billing.BaseURL, cfg.Billing.Timeout)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := billing.NewClient(billing.ClientConfig{
		APIKey:     cfg.Billing.APIKey,
		BaseURL:    cfg.Billing.BaseURL,
		AuthScheme: cfg.Billing.AuthScheme,
		Timeout:    cfg.GetBillingTimeout(),
	})
	defer client.Close()

	return billing.Run(ctx, client, cmd.OutOrStdout())
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		cfg.Billing.APIKey = opts.apiKey
	}
	if flags.Changed("base-url") {
		cfg.Billing.BaseURL = opts.baseURL
	}
	if flags.Changed("auth-scheme") {
		cfg.Billing.AuthScheme = opts.authScheme
	}
	if flags.Changed("timeout") {
		cfg.Billing.Timeout = opts.timeout.String()
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
