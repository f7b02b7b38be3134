package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/domain/questionbank"
	"github.com/wellcheck/wellcheck/internal/domain/scoring"
	"github.com/wellcheck/wellcheck/internal/platform/db"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// open loads config and connects; dir overrides MIGRATIONS_DIR.
	open := func(ctx context.Context, dir string) (*db.Migrator, func(), error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if !cfg.HasDatabase() {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
		}
		if dir == "" {
			dir = cfg.MigrationsDir
		}
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: 2})
		if err != nil {
			return nil, nil, err
		}
		return db.NewMigrator(pool, db.Migrations(dir)), pool.Close, nil
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := cmd.Context()
			migrator, closeFn, err := open(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default: embedded)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			ctx := cmd.Context()
			migrator, closeFn, err := open(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default: embedded)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// scoreOutput is what the score command prints.
type scoreOutput struct {
	scoring.Evaluation
	Category        string   `json:"category"`
	Title           string   `json:"title"`
	Language        string   `json:"language"`
	Recommendations []string `json:"recommendations"`
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a set of answers offline and print the result",
		Long: "Reads a JSON array of {\"question_id\", \"answer\"} objects from --answers " +
			"(\"-\" for stdin) and prints the numeric result. No AI analysis is run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, _ := cmd.Flags().GetString("category")
			path, _ := cmd.Flags().GetString("answers")
			lang, _ := cmd.Flags().GetString("lang")

			loc, ok := bilingual.Parse(lang)
			if !ok {
				return fmt.Errorf("--lang must be th or en, got %q", lang)
			}

			var in io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			bank, err := questionbank.Default()
			if err != nil {
				return err
			}
			out, err := scoreAnswers(bank, categoryID, loc, in)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().String("category", "", "Category id, e.g. phq9")
	cmd.Flags().String("answers", "-", "Answers JSON file")
	cmd.Flags().String("lang", string(bilingual.Default), "Output language (th or en)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func scoreAnswers(bank *questionbank.Bank, categoryID string, loc bilingual.Locale, r io.Reader) (*scoreOutput, error) {
	cat, ok := bank.Category(categoryID)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", categoryID)
	}

	var answers []scoring.Answer
	if err := json.NewDecoder(r).Decode(&answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}

	eval := scoring.NewCalculator(zerolog.Nop()).Evaluate(cat, answers)
	recs := cat.FallbackRecommendations(eval.RiskLevel, loc)
	if recs == nil {
		recs = []string{}
	}
	return &scoreOutput{
		Category:        cat.ID,
		Title:           cat.Title.Get(loc),
		Language:        loc.String(),
		Evaluation:      eval,
		Recommendations: recs,
	}, nil
}

func bankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect the question bank",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := questionbank.Default()
			if err != nil {
				return err
			}
			return listBank(cmd.OutOrStdout(), bank)
		},
	})
	return cmd
}

func listBank(w io.Writer, bank *questionbank.Bank) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUESTIONS\tMAX SCORE\tTITLE (EN)\tTITLE (TH)")
	for _, c := range bank.Categories() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", c.ID, len(c.Questions), c.MaxScore(),
			c.Title.Get(bilingual.English), c.Title.Get(bilingual.Thai))
	}
	return tw.Flush()
}
