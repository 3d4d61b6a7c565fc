package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"vidprint/internal/vectorindex"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <source>",
		Short: "Fingerprint a video and store it in the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			meta, err := svc.Add(cmd.Context(), args[0], title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %s as video %d\n", meta.Source, meta.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Display title for the video")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <source>",
		Short: "Find indexed videos similar to a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			k := topK
			if k <= 0 {
				k = ctx.cfg.Index.TopK
			}
			matches, err := svc.Search(cmd.Context(), args[0], k)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no similar videos found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMatches(matches))
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top", 0, "Number of results (default from TOP_K)")
	return cmd
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <source-a> <source-b>",
		Short: "Compute the similarity of two videos without indexing them",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			sim, err := svc.Compare(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "similarity: %.4f\n", sim)
			if sim >= ctx.cfg.Index.SimilarityThreshold {
				fmt.Fprintln(cmd.OutOrStdout(), "verdict: likely duplicates")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "verdict: distinct")
			}
			return nil
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index size and active settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "videos:    %d\n", stats.Videos)
			fmt.Fprintf(cmd.OutOrStdout(), "dimension: %d\n", stats.Dimension)
			fmt.Fprintf(cmd.OutOrStdout(), "metric:    %s\n", stats.Metric)
			fmt.Fprintf(cmd.OutOrStdout(), "threshold: %.2f\n", stats.Threshold)
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a video from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid video id %q", args[0])
			}
			svc, closeFn, err := ctx.newService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted video %d\n", id)
			return nil
		},
	}
}

func renderMatches(matches []vectorindex.Match) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Source", "Title", "Similarity"})
	for _, m := range matches {
		tw.AppendRow(table.Row{m.Video.ID, m.Video.Source, m.Video.Title, fmt.Sprintf("%.4f", m.Similarity)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
