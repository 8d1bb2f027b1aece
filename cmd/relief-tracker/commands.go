package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/relief-tracker/internal/app"
	"github.com/joseph-ayodele/relief-tracker/internal/extract"
	"github.com/joseph-ayodele/relief-tracker/internal/pipeline"
	"github.com/joseph-ayodele/relief-tracker/internal/rules"
)

func processCmd(g *globals) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "process --user USER FILE...",
		Short: "Process receipt images and print each pipeline result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(ctx context.Context, a *app.App) error {
				proc, err := a.Pipeline(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				failed := 0
				for _, path := range args {
					img, err := extract.ReadImage(path)
					var res pipeline.Result
					if err != nil {
						res = pipeline.Result{Error: err.Error(), ErrorKind: pipeline.ErrorKindValidation, Items: []pipeline.ItemResult{}}
					} else {
						res = proc.ProcessReceipt(ctx, userID, img)
					}
					if !res.Success {
						failed++
					}
					if err := enc.Encode(res); err != nil {
						return err
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d receipts failed", failed, len(args))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User the receipts belong to (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func summaryCmd(g *globals) *cobra.Command {
	var (
		userID string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "summary --user USER",
		Short: "Print a user's tax summary and relief utilization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(ctx context.Context, a *app.App) error {
				summary, err := a.Relief.GetTaxSummary(ctx, userID)
				if err != nil {
					return err
				}
				util, err := a.Relief.Utilization(ctx, userID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(map[string]any{"tax_summary": summary, "utilization": util})
				}

				cats := make([]string, 0, len(summary))
				for c := range summary {
					cats = append(cats, c)
				}
				sort.Strings(cats)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tENTRIES\tCLAIMED")
				for _, c := range cats {
					fmt.Fprintf(tw, "%s\t%d\t%.2f\n", c, len(summary[c].Expenses), summary[c].TotalClaimed)
				}
				fmt.Fprintln(tw)
				fmt.Fprintln(tw, "RELIEF\tCLAIMED\tLIMIT\tREMAINING")
				for _, u := range util {
					fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\n", u.Category, u.Claimed, u.Limit, u.Remaining)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User to summarize (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func exportCmd(g *globals) *cobra.Command {
	var (
		userID   string
		out      string
		bigquery bool
	)
	cmd := &cobra.Command{
		Use:   "export --user USER [--out FILE] [--bigquery]",
		Short: "Export a user's ledger to an XLSX workbook and/or BigQuery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" && !bigquery {
				return errors.New("nothing to do: pass --out and/or --bigquery")
			}
			return g.withApp(func(ctx context.Context, a *app.App) error {
				if out != "" {
					data, err := a.Export.TaxSummaryXLSX(ctx, userID)
					if err != nil {
						return err
					}
					if err := os.WriteFile(out, data, 0o644); err != nil {
						return fmt.Errorf("write %s: %w", out, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
				}
				if bigquery {
					sink, err := a.BigQuery(ctx)
					if err != nil {
						return err
					}
					if err := sink.EnsureTable(ctx); err != nil {
						return err
					}
					n, err := sink.Export(ctx, userID)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to BigQuery\n", n)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User to export (required)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "XLSX output path")
	cmd.Flags().BoolVar(&bigquery, "bigquery", false, "Stream ledger rows to the configured BigQuery table")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func rulesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and index the tax-relief knowledge base",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Check a YAML or JSON rule file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := rules.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", args[0], len(rs))
			return nil
		},
	})

	var snapshot string
	index := &cobra.Command{
		Use:   "index --out SNAPSHOT",
		Short: "Build the rule index and write a snapshot the server can load at startup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(func(ctx context.Context, a *app.App) error {
				if err := a.ReloadRules(ctx); err != nil {
					return err
				}
				f, err := os.Create(snapshot)
				if err != nil {
					return err
				}
				if err := a.WriteSnapshot(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				ix := a.Retriever.Current()
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rules, %s)\n", snapshot, ix.Len(), ix.EmbedderName())
				return nil
			})
		},
	}
	index.Flags().StringVarP(&snapshot, "out", "o", "", "Snapshot output path (required)")
	_ = index.MarkFlagRequired("out")
	cmd.AddCommand(index)
	return cmd
}
