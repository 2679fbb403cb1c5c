package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuemby/ruzudb/pkg/database"
)

var initCmd = &cobra.Command{
	Use:   "init <dir>",
	Short: "Create a new database directory",
	Long: `Initialize a new ruzudb database directory, allocating its header
and data file pages. Fails if the directory already contains a database.

Examples:
  ruzudb init ./mydb
  ruzudb init --config db.yaml ./mydb`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := args[0]
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := loadConfigFlag(configPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(dir, "data.ruzu")); err == nil {
		return fmt.Errorf("%s already contains a database", dir)
	}

	db, err := database.Open(dir, cfg)
	if err != nil {
		return fmt.Errorf("initializing database at %s: %w", dir, err)
	}
	defer db.Close()

	fmt.Printf("Initialized ruzudb database at %s\n", dir)
	return nil
}

func loadConfigFlag(configPath string) (database.Config, error) {
	if configPath == "" {
		return database.DefaultConfig(), nil
	}
	cfg, err := database.LoadConfig(configPath)
	if err != nil {
		return database.Config{}, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return cfg, nil
}
