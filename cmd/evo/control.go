package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"evo/internal/config"
)

var httpTimeout time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the running daemon's status (Evolver, Budget, Router)",
	RunE:  controlCommand(http.MethodGet, "/status"),
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running daemon's scheduled cycle",
	RunE:  controlCommand(http.MethodPost, "/pause"),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the running daemon's scheduled cycle",
	RunE:  controlCommand(http.MethodPost, "/resume"),
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Trigger a single cycle, regardless of running state (rate-limited)",
	RunE:  controlCommand(http.MethodPost, "/run_once"),
}

// controlCommand builds a cobra RunE that hits one dashboard route on
// the already-running daemon and prints its JSON response — the CLI
// side of the control surface spec.md §4.12 pins, analogous to the
// teacher's direct-action commands that shell a single verb through to
// a running subsystem.
func controlCommand(method, route string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		addr := resolveDashboardAddr()
		client := &http.Client{Timeout: httpTimeout}

		req, err := http.NewRequest(method, "http://"+addr+route, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("evo daemon not reachable at %s: %w", addr, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		var pretty interface{}
		if err := json.Unmarshal(body, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
		} else {
			fmt.Println(string(body))
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s %s returned %d", method, route, resp.StatusCode)
		}
		return nil
	}
}

// resolveDashboardAddr prefers the --addr flag, falling back to the
// workspace's own evo.yaml so the CLI agrees with whatever the running
// daemon was actually configured with.
func resolveDashboardAddr() string {
	if dashboardAddr != "" {
		return dashboardAddr
	}
	cfg, err := config.Load(filepath.Join(workspace, configPath))
	if err != nil {
		return config.DefaultConfig().Dashboard.ListenAddr
	}
	return cfg.Dashboard.ListenAddr
}
