package cli

import (
	"github.com/spf13/cobra"

	"github.com/pipeline-crm/pipeline/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Read and write pipeline configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configGetCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "Print a config value by dotted key (e.g. agent.model)",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigGet,
	}

	configSetCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value and write it back to the config file",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
)

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	value, err := cfg.Get(args[0])
	if err != nil {
		return err
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	// Read the file without env overrides so transient environment
	// values are not baked into the saved config.
	cfg, err := config.LoadFile(config.Path())
	if err != nil {
		return err
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}
