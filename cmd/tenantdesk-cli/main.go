// Command tenantdesk is the operator CLI for the TenantDesk admin API.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tenantdesk/tenantdesk/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

var (
	apiClient *client.Client
	flagURL   string
	flagToken string
	flagFmt   string
)

const defaultURL = "http://localhost:8080"

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("tenantdesk version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("tenantdesk version %s-dev", version)
}

type configProfile struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type configFile struct {
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "tenantdesk",
		Short:   "TenantDesk CLI — operate the tenant administration service",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagToken != "" {
				opts = append(opts, client.WithToken(flagToken))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "TenantDesk server URL (env: TENANTDESK_URL)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Admin token (env: TENANTDESK_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	initCmd := newInitCmd()
	initCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {} // skip client setup
	doctorCmd := newDoctorCmd()

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(newCompanyCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	if flagURL == defaultURL {
		if v := os.Getenv("TENANTDESK_URL"); v != "" {
			flagURL = v
		}
	}
	if flagToken == "" {
		flagToken = os.Getenv("TENANTDESK_TOKEN")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	cfgPath := filepath.Join(home, ".tenantdesk", "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}

	profileName := cfg.ActiveProfile
	if profileName == "" {
		profileName = "default"
	}
	p, ok := cfg.Profiles[profileName]
	if !ok {
		return
	}
	if flagURL == defaultURL && p.URL != "" {
		flagURL = p.URL
	}
	if flagToken == "" && p.Token != "" {
		flagToken = p.Token
	}
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
