package main

import (
	"azarean/rehab-app/internal/seed"
	"azarean/rehab-app/internal/service"
	"context"
	"time"

	"github.com/spf13/cobra"
)

func indexesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Ensure MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if a.ensureIndexes == nil {
				a.log.Info("memory driver has no indexes")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := a.ensureIndexes(ctx); err != nil {
				return err
			}
			a.log.Info("Index creation process completed.")
			return nil
		},
	}
}

func seedPhasesCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-phases",
		Short: "Upsert the rehab phase catalog from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			phases, err := seed.LoadPhases(file)
			if err != nil {
				return err
			}

			a, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			roadmap := service.NewRoadmapService(a.store, time.Now, a.cfg.Rehab.Location(), a.log)
			if err := roadmap.SeedPhases(cmd.Context(), phases); err != nil {
				return err
			}
			a.log.Info("phase catalog seeded", "phases", len(phases), "file", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "configs/phases.yaml", "phase catalog to load")
	return cmd
}
