package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/singleflight"

	"vidprint/internal/batch"
	"vidprint/internal/checkpoint"
	"vidprint/internal/report"
)

const batchDefaultThreshold = 0.9

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		runID     string
		threshold float64
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "batch <csv>",
		Short: "Fingerprint every video in a CSV and report duplicate groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := runBatch(cmd, ctx, args[0], runID, threshold)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.Render())
			if outPath != "" {
				if err := rep.WriteJSON(outPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run identifier for checkpointing (default: csv file name)")
	cmd.Flags().Float64Var(&threshold, "threshold", batchDefaultThreshold, "Similarity threshold for grouping")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the JSON report to this path")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "watch <csv>",
		Short: "Run the batch on a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var group singleflight.Group
			c := cron.New()
			_, err = c.AddFunc(cfg.Batch.CronExpr, func() {
				_, _, _ = group.Do("batch", func() (any, error) {
					runID := fmt.Sprintf("%s-%s", defaultRunID(args[0]), timeStamp())
					rep, err := runBatch(cmd, ctx, args[0], runID, threshold)
					if err != nil {
						ctx.logger.Error("scheduled batch failed", "error", err)
						return nil, err
					}
					fmt.Fprintln(cmd.OutOrStdout(), rep.Render())
					return nil, nil
				})
			})
			if err != nil {
				return err
			}

			ctx.logger.Info("watching", "csv", args[0], "schedule", cfg.Batch.CronExpr)
			c.Start()
			<-cmd.Context().Done()
			<-c.Stop().Done()
			return cmd.Context().Err()
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", batchDefaultThreshold, "Similarity threshold for grouping")
	return cmd
}

func runBatch(cmd *cobra.Command, ctx *commandContext, csvPath, runID string, threshold float64) (rep report.Report, err error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return rep, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return rep, fmt.Errorf("open csv: %w", err)
	}
	sources, err := batch.ReadSources(f)
	f.Close()
	if err != nil {
		return rep, err
	}

	if runID == "" {
		runID = defaultRunID(csvPath)
	}

	svc, closeFn, err := ctx.newService(cmd.Context())
	if err != nil {
		return rep, err
	}
	defer closeFn()

	store, err := checkpoint.New(cfg.Batch.CheckpointDB)
	if err != nil {
		return rep, err
	}
	defer store.Close()

	o := batch.NewOrchestrator(
		svc,
		svc.Index(),
		store,
		ctx.logger,
		cfg.Batch.Workers,
		cfg.Batch.ItemTimeout,
		threshold,
		cfg.Index.TopK,
	)
	return o.Run(cmd.Context(), runID, sources)
}

func defaultRunID(csvPath string) string {
	base := filepath.Base(csvPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func timeStamp() string {
	return time.Now().UTC().Format("20060102-150405")
}
