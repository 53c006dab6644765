package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duskforge/vigil/internal/config"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateConfigFlag string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a vigil configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := validateConfigFlag
		if path == "" {
			path = configPath
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg.ApplyDefaults()
		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", e)
			}
			return fmt.Errorf("%d validation error(s)", len(errs))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigFlag, "config", "", "Path to vigil config file (defaults to --config on the root command)")
}
