package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ONSdigital/blaise-export-reporting-tool/internal/callpattern"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/cati"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/config"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/export"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/reporting"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/storage"
	"github.com/ONSdigital/blaise-export-reporting-tool/internal/types"
)

var logLevel string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reportctl",
		Short:         "Operate the interviewer call pattern reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newGenerateCmd(), newSyncCmd(), newSeedCmd())
	return rootCmd
}

func newLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

// === GENERATE ===

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a call pattern report from a JSON file of call history rows",
		RunE:  runGenerate,
	}
	cmd.Flags().String("input", "", "JSON array of call history rows (required)")
	cmd.Flags().String("format", "json", "output format: json, csv or xlsx")
	cmd.Flags().String("output", "", "output file (default stdout)")
	cmd.Flags().String("interviewer", "", "interviewer named in csv/xlsx output")
	cmd.Flags().String("start-date", "", "start date named in csv/xlsx output")
	cmd.Flags().String("end-date", "", "end date named in csv/xlsx output")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	rs, err := types.DecodeRecordSet(data)
	if err != nil {
		return err
	}

	report, err := callpattern.Generate(rs)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if report == nil {
			return enc.Encode(struct{}{})
		}
		return enc.Encode(report)
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	meta := export.Meta{}
	meta.Interviewer, _ = cmd.Flags().GetString("interviewer")
	meta.StartDate, _ = cmd.Flags().GetString("start-date")
	meta.EndDate, _ = cmd.Flags().GetString("end-date")
	if meta.Interviewer == "" && rs.Len() > 0 {
		meta.Interviewer = rs.Records[0].Interviewer
	}
	return export.Write(w, f, meta, report)
}

// === SYNC ===

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy CATI dial history from MySQL into the call history table",
		RunE:  runSync,
	}
	cmd.Flags().Duration("since", 24*time.Hour, "how far back to read dial history")
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr())
	since, _ := cmd.Flags().GetDuration("since")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	conn, err := cati.NewConnection(ctx, cfg.MySQL)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, err := storage.NewStore(ctx, logger)
	if err != nil {
		return err
	}

	syncer := reporting.NewSyncer(cati.NewReader(conn, logger), store, nil, 0, since, logger)
	written, err := syncer.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "synced %d call records\n", written)
	return nil
}

// === SEED ===

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic call history for local development",
		RunE:  runSeed,
	}
	cmd.Flags().StringSlice("interviewers", []string{"matpal"}, "interviewer logins")
	cmd.Flags().StringSlice("questionnaires", []string{"LMS2101_AA1"}, "questionnaire names")
	cmd.Flags().String("start-date", time.Now().UTC().Format(types.DateLayout), "first day (YYYY-MM-DD)")
	cmd.Flags().Int("days", 5, "number of days")
	cmd.Flags().Int("dials-per-day", 40, "dials per interviewer per day")
	cmd.Flags().Float64("missing-end-rate", 0.02, "share of dials without an end time")
	cmd.Flags().Int64("seed", 1, "random seed")
	cmd.Flags().String("output", "", "write JSON rows to this file instead of the call history table")
	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	interviewers, _ := cmd.Flags().GetStringSlice("interviewers")
	questionnaires, _ := cmd.Flags().GetStringSlice("questionnaires")
	startDate, _ := cmd.Flags().GetString("start-date")
	days, _ := cmd.Flags().GetInt("days")
	dialsPerDay, _ := cmd.Flags().GetInt("dials-per-day")
	missingEnd, _ := cmd.Flags().GetFloat64("missing-end-rate")
	seed, _ := cmd.Flags().GetInt64("seed")
	output, _ := cmd.Flags().GetString("output")

	start, err := time.Parse(types.DateLayout, startDate)
	if err != nil {
		return fmt.Errorf("invalid start-date: %w", err)
	}
	if days <= 0 || dialsPerDay <= 0 {
		return fmt.Errorf("days and dials-per-day must be positive")
	}

	records := reporting.NewSeedGenerator(reporting.SeedConfig{
		Interviewers:   interviewers,
		Questionnaires: questionnaires,
		Start:          start,
		Days:           days,
		DialsPerDay:    dialsPerDay,
		MissingEndRate: missingEnd,
		Seed:           seed,
	}).Generate()

	if output != "" {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d call records to %s\n", len(records), output)
		return nil
	}

	logger := newLogger(cmd.ErrOrStderr())
	store, err := storage.NewStore(cmd.Context(), logger)
	if err != nil {
		return err
	}
	written, err := store.SaveCallRecords(cmd.Context(), records)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d call records\n", written)
	return nil
}
