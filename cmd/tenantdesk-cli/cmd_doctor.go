package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose connectivity and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

func runDoctor() error {
	fmt.Println("\n  TenantDesk Doctor")
	fmt.Println("  ─────────────────")

	failed := 0

	// Config file.
	home, err := os.UserHomeDir()
	if err == nil {
		cfgPath := filepath.Join(home, ".tenantdesk", "config.yaml")
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Printf("  ✓ config file: %s\n", cfgPath)
		} else {
			fmt.Println("  - config file: not found (using flags/env)")
		}
	}

	if flagToken == "" {
		fmt.Println("  ✗ token: not set")
		failed++
	} else {
		fmt.Println("  ✓ token: set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Liveness.
	health, err := apiClient.Health(ctx)
	if err != nil {
		fmt.Printf("  ✗ server: unreachable at %s (%v)\n", flagURL, err)
		return fmt.Errorf("%d check(s) failed", failed+1)
	}
	fmt.Printf("  ✓ server: %s (v%s, db %s)\n", flagURL, health.Version, health.Database)

	// Readiness.
	ready, err := apiClient.Ready(ctx)
	if err != nil || ready.Status != "ready" {
		fmt.Println("  ✗ readiness: not ready")
		failed++
	} else {
		fmt.Printf("  ✓ readiness: schema v%d\n", ready.SchemaVersion)
	}

	// Admin auth.
	if _, err := apiClient.Stats(ctx); err != nil {
		fmt.Printf("  ✗ admin auth: %v\n", err)
		failed++
	} else {
		fmt.Println("  ✓ admin auth: ok")
	}

	fmt.Println()

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}

	fmt.Println("  All checks passed.")
	fmt.Println()

	return nil
}
