package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tbxark/interviewagent/question"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load questions and options from a YAML file into the question database",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(conf.Log, os.Stderr)

	seed, err := question.ReadSeed(args[0])
	if err != nil {
		return err
	}
	repo, err := question.OpenSQLite(conf.Questions.SQLitePath)
	if err != nil {
		return fmt.Errorf("open question repository: %w", err)
	}
	defer repo.Close()

	if err := seed.Apply(cmd.Context(), repo); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	slog.Info("Seed applied", "file", args[0], "questions", len(seed.Questions), "db", conf.Questions.SQLitePath)
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d questions into %s\n", len(seed.Questions), conf.Questions.SQLitePath)
	return nil
}
