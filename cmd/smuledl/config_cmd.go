package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/ytget/smuledl/internal/config"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	Args:  cobra.NoArgs,
	// the file may not parse yet, so skip loading it
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              configInitRun,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  configShowRun,
}

func init() {
	configInitCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func configInitRun(cmd *cobra.Command, args []string) error {
	path := flagConfig
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !flagForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return err
}

func configShowRun(cmd *cobra.Command, args []string) error {
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), cfg)
	}
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}
