package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/ruzudb/pkg/database"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <dir>",
	Short: "Flush in-memory tables to disk and truncate the write-ahead log",
	Long: `Persist every table in the database at dir to its page ranges and
truncate the write-ahead log, since its records are now redundant with
the page store.

Examples:
  ruzudb checkpoint ./mydb`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpoint,
}

func runCheckpoint(cmd *cobra.Command, args []string) error {
	dir := args[0]
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := loadConfigFlag(configPath)
	if err != nil {
		return err
	}

	db, err := database.Open(dir, cfg)
	if err != nil {
		return fmt.Errorf("opening database at %s: %w", dir, err)
	}
	defer db.Close()

	if _, err := db.Checkpoint(); err != nil {
		return fmt.Errorf("checkpointing %s: %w", dir, err)
	}

	fmt.Printf("Checkpointed %s and truncated its write-ahead log\n", dir)
	return nil
}
