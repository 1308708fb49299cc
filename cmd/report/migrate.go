package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/warehouse"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	if !cfg.Warehouse.Enabled() {
		return fmt.Errorf("warehouse not configured: set BQ_PROJECT, BQ_DATASET and BQ_TABLE")
	}

	ctx, cancel := commandContext()
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	sink, err := warehouse.NewBigQuerySink(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Dataset, cfg.Warehouse.Table)
	if err != nil {
		return err
	}
	defer sink.Close()

	created, err := sink.EnsureTable(ctx)
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s.%s.%s", cfg.Warehouse.ProjectID, cfg.Warehouse.Dataset, cfg.Warehouse.Table)
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", target)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is up to date\n", target)
	}
	return nil
}
