// Package main provides the kortreist operator CLI: snapshot regeneration
// and ad-hoc fetches of the merged producer list.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/andyarntsen-alt/kortreist/engine/aggregate"
	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/engine/query"
	"github.com/andyarntsen-alt/kortreist/engine/snapshot"
	"github.com/andyarntsen-alt/kortreist/engine/source/bondensmarked"
	"github.com/andyarntsen-alt/kortreist/engine/source/hanen"
	"github.com/andyarntsen-alt/kortreist/engine/source/overpass"
)

var version = "0.1.0"

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "kortreist",
		Short:   "Tools for the kortreist local food directory",
		Version: version,
	}
	rootCmd.SetVersionTemplate("kortreist version {{.Version}}\n")

	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newFetchCmd())
	return rootCmd
}

// newSnapshotCmd regenerates the bundled static snapshot: the previous
// snapshot's non-scraped entries are kept, the Bondens Marked entries are
// replaced by a fresh scrape, and the union is deduplicated by name.
func newSnapshotCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Refresh the bundled producer snapshot from Bondens Marked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			var existing []domain.Producer
			if data, err := os.ReadFile(out); err == nil {
				if existing, err = snapshot.Decode(data); err != nil {
					return fmt.Errorf("parse existing snapshot: %w", err)
				}
			}

			adapter := bondensmarked.New(bondensmarked.Config{Logger: logger})
			scraped, err := adapter.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("scrape: %w", err)
			}

			merged := snapshot.Refresh(existing, scraped)

			kept := merged[:0]
			withImage := 0
			for _, p := range merged {
				if err := domain.ValidateProducer(p); err != nil {
					logger.Warn("dropping invalid record", "id", p.ID, "err", err)
					continue
				}
				if p.HasImage() {
					withImage++
				}
				kept = append(kept, p)
			}

			data, err := snapshot.Encode(kept)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "snapshot written: %s (existing %d, scraped %d, kept %d, with images %d)\n",
				out, len(existing), len(scraped), len(kept), withImage)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "engine/snapshot/farmers.json", "snapshot file to refresh")
	return cmd
}

// newFetchCmd runs the full aggregation once and prints the merged list.
// With --lat/--lng it prints a distance-sorted text listing instead of JSON.
func newFetchCmd() *cobra.Command {
	var lat, lng float64
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and merge all sources, printing the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			agg := aggregate.New(
				aggregate.Config{Logger: logger},
				hanen.New(hanen.Config{Logger: logger}),
				bondensmarked.New(bondensmarked.Config{Logger: logger}),
				overpass.New(overpass.Config{Logger: logger}),
			)

			res := agg.Producers(cmd.Context())

			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				from := domain.Location{Lat: lat, Lng: lng}
				for _, p := range query.SortByDistance(res.Producers, from) {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s (%s)\n",
						query.FormatDistance(*p.Distance), p.Name, p.Address)
				}
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res.Producers)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude to sort by distance from")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude to sort by distance from")
	return cmd
}
