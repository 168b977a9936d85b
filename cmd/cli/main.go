package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/avolkov/finsight/internal/advisor"
	"github.com/avolkov/finsight/internal/config"
	"github.com/avolkov/finsight/internal/llm"
	"github.com/avolkov/finsight/internal/logger"
	"github.com/avolkov/finsight/internal/pipeline"
	"github.com/avolkov/finsight/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "Analyze bank statement exports and get savings advice",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Analyze a CSV bank export and print the categorized transactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cliLog := newCLILogger()

		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read CSV file: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		componentLog := logger.New()
		st := store.New(store.NewSnapshot(cfg.SnapshotURI), componentLog)
		st.Load(ctx)

		client, err := llm.New(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return err
		}

		cliLog.Info("analyzing statement", "file", args[0], "bytes", len(data))

		analyzer := pipeline.NewAnalyzer(client, st, componentLog)
		result, err := analyzer.AnalyzeCSV(ctx, string(data))
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		fmt.Printf("\nTransactions (%d)\n", len(result.Transactions))
		for _, tx := range result.Transactions {
			fmt.Printf("  %-10s  %-40s  %10.2f  %s\n", tx.Date, tx.Description, tx.Amount, tx.Category)
		}

		fmt.Println("\nCategory breakdown")
		for _, entry := range result.Analysis.CategoryBreakdown {
			fmt.Printf("  %-20s  %10.2f  %5.1f%%\n", entry.Category, entry.Amount, entry.Percentage)
		}

		s := result.Analysis.Summary
		fmt.Printf("\nIncome: %.2f  Expenses: %.2f  Net savings: %.2f\n", s.TotalIncome, s.TotalExpenses, s.NetSavings)

		if cfg.SnapshotURI != "" {
			cliLog.Info("snapshot saved", "uri", cfg.SnapshotURI)
		}
		return nil
	},
}

var tipsCmd = &cobra.Command{
	Use:   "tips",
	Short: "Generate savings tips from previously analyzed transactions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cliLog := newCLILogger()

		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		componentLog := logger.New()
		st := store.New(store.NewSnapshot(cfg.SnapshotURI), componentLog)
		st.Load(ctx)

		txs := st.Transactions()
		if len(txs) == 0 {
			return fmt.Errorf("no transactions in the snapshot; run 'finsight analyze' first")
		}

		client, err := llm.New(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return err
		}

		now := time.Now()
		prev := now.AddDate(0, -1, 0)
		data := advisor.SpendingData{
			MonthlyCategorySpending: advisor.CategorySpending(txs, now.Year(), now.Month()),
			PreviousMonthSpending:   advisor.CategorySpending(txs, prev.Year(), prev.Month()),
		}

		cliLog.Info("generating tips", "transactions", len(txs))

		tips, err := advisor.New(client, componentLog).Synthesize(ctx, data)
		if err != nil {
			return fmt.Errorf("tip synthesis failed: %w", err)
		}
		if len(tips) == 0 {
			fmt.Println("No tips generated.")
			return nil
		}

		for _, tip := range tips {
			fmt.Printf("\n[%s] %s\n", tip.Category, tip.Tip)
			if tip.PotentialSavings != nil {
				fmt.Printf("  Potential savings: %.2f\n", *tip.PotentialSavings)
			}
		}
		fmt.Println()
		return nil
	},
}

func newCLILogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "finsight",
	})
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file")
	analyzeCmd.Flags().String("snapshot_uri", "", "Where to persist the analyzed session (file path or gs:// URI)")
	tipsCmd.Flags().String("snapshot_uri", "", "Snapshot to read transactions from (file path or gs:// URI)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(tipsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
