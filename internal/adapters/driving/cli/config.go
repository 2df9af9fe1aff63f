package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/stevedore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/services"
	"github.com/custodia-labs/stevedore/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
	Long: `Reads and writes the TOML config file. Keys use dots for tables,
for example index.host or upload.batch_size.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if app == nil || app.Config == nil {
			return errNotConfigured
		}
		cmd.Println(app.Config.Path())
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if app == nil || app.Config == nil {
			return errNotConfigured
		}
		val, ok := app.Config.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s is not set", domain.ErrNotFound, args[0])
		}
		cmd.Println(fmt.Sprint(val))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a config value",
	Long: `Stores a config value. true/false become booleans and numbers become
integers or floats; everything else is stored as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if app == nil || app.Config == nil {
			return errNotConfigured
		}
		key := args[0]
		if !slices.Contains(services.ConfigKeys, key) {
			logger.Warn("%s is not a key stevedore reads", key)
		}
		val := file.ParseValue(args[1])
		if err := app.Config.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		cmd.Printf("%s = %v\n", key, val)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
