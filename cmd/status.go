package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/sdprelay/internal/ui"
)

var statusFlags peerFlags

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show live room and connection counts of a relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := statusFlags.LoadConfig()
		if err != nil {
			return err
		}
		statsURL, err := cfg.StatsURL()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		stats, err := fetchStats(ctx, statsURL)
		if err != nil {
			return err
		}
		fmt.Println(ui.StatsView(statsURL, stats))
		return nil
	},
}

func fetchStats(ctx context.Context, statsURL string) (ui.RelayStats, error) {
	var stats ui.RelayStats

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statsURL, nil)
	if err != nil {
		return stats, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return stats, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("fetch stats: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusFlags.register(statusCmd)
}
