package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kheopsian/Seederr/internal/bytesize"
	"github.com/Kheopsian/Seederr/internal/cli/output"
	"github.com/Kheopsian/Seederr/pkg/config"
	"github.com/Kheopsian/Seederr/pkg/engine"
	"github.com/Kheopsian/Seederr/pkg/history"
	"github.com/Kheopsian/Seederr/pkg/qbit"
	"github.com/Kheopsian/Seederr/pkg/storage"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current ranking and tier occupancy",
	Long: `Show a snapshot of the current payload ranking and tier occupancy.

The command connects to qBittorrent, scores every payload with the configured
weights and prints the ranking the next cycle would act on. Nothing is moved.

Examples:
  # Show the top 20 payloads
  seederr status

  # Show the full ranking
  seederr status --limit 0`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum rows to print (0 = all)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Qbit.Timeout)
	defer cancel()

	paths := cfg.TierPaths()

	client, err := qbit.New(cfg.Qbit, paths)
	if err != nil {
		return fmt.Errorf("failed to create qbittorrent client: %w", err)
	}
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with qbittorrent: %w", err)
	}

	payloads, err := client.ListPayloads(ctx)
	if err != nil {
		return fmt.Errorf("failed to list torrents: %w", err)
	}
	if len(payloads) == 0 {
		fmt.Println("No torrents reported by qBittorrent.")
		return nil
	}

	// Score with history when the store opens; cold-start scores otherwise.
	var store *history.Store
	if store, err = history.New(&cfg.Database); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: metric store unavailable, showing cold-start scores: %v\n", err)
		store = nil
	} else {
		defer func() { _ = store.Close() }()
	}

	weights := cfg.Tunables().Weights

	ranked := make([]engine.ScoredPayload, 0, len(payloads))
	for _, p := range payloads {
		var rec *engine.MetricRecord
		if store != nil {
			rec, _ = store.Get(ctx, p.Hash)
		}
		ranked = append(ranked, engine.ScoredPayload{
			Payload: p,
			Score:   engine.Score(p, rec, weights),
		})
	}
	engine.SortByScore(ranked)

	printTierSummary(cfg, ranked)
	fmt.Println()
	printRanking(ranked)
	return nil
}

func printTierSummary(cfg *config.Config, ranked []engine.ScoredPayload) {
	counts := map[engine.Tier]int{}
	sizes := map[engine.Tier]uint64{}
	for _, p := range ranked {
		counts[p.Tier]++
		sizes[p.Tier] += uint64(p.Size)
	}

	pairs := [][2]string{
		{"Cache payloads", fmt.Sprintf("%d (%s)", counts[engine.TierCache], bytesize.ByteSize(sizes[engine.TierCache]))},
		{"Master payloads", fmt.Sprintf("%d (%s)", counts[engine.TierMaster], bytesize.ByteSize(sizes[engine.TierMaster]))},
	}

	stat := storage.NewDiskStat()
	if cfg.Tiers.CacheCapacityOverride > 0 {
		stat.OverrideCapacity(cfg.Tiers.CachePath, cfg.Tiers.CacheCapacityOverride.Uint64())
	}
	if capacity, err := stat.CapacityBytes(cfg.Tiers.CachePath); err == nil {
		if used, err := stat.UsedBytes(cfg.Tiers.CachePath); err == nil {
			pairs = append(pairs, [2]string{
				"Cache volume",
				fmt.Sprintf("%s / %s used", bytesize.ByteSize(used), bytesize.ByteSize(capacity)),
			})
		}
	}

	_ = output.SimpleTable(os.Stdout, pairs)
}

func printRanking(ranked []engine.ScoredPayload) {
	table := output.NewTableData("#", "Name", "Tier", "Size", "Score", "Seeders", "Leechers", "Added")

	for i, p := range ranked {
		if statusLimit > 0 && i >= statusLimit {
			break
		}
		table.AddRow(
			fmt.Sprintf("%d", i+1),
			truncateName(p.Name, 48),
			string(p.Tier),
			bytesize.ByteSize(uint64(p.Size)).String(),
			fmt.Sprintf("%.1f", p.Score),
			fmt.Sprintf("%d", p.Seeders),
			fmt.Sprintf("%d", p.Leechers),
			time.Unix(p.AddedOn, 0).Format("2006-01-02"),
		)
	}

	_ = output.PrintTable(os.Stdout, table)

	if statusLimit > 0 && len(ranked) > statusLimit {
		fmt.Printf("\n... and %d more (use --limit 0 to show all)\n", len(ranked)-statusLimit)
	}
}

// truncateName shortens a torrent name to max characters. Truncation counts
// runes so multi-byte names are never split mid-character.
func truncateName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max-3]) + "..."
}
