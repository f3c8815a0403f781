package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtleson01/bird-app/internal/app"
	"github.com/turtleson01/bird-app/internal/conf"
)

const skipInitAnnotation = "birddex/skip-init"

// SkipsInit reports whether cmd runs without loading settings
func SkipsInit(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[skipInitAnnotation]
	return ok
}

// Command creates the config command group.
func Command(ctx *app.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create and inspect configuration",
	}
	cmd.AddCommand(initCommand(), dumpCommand(ctx))
	return cmd
}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "init [path]",
		Short:       "Write the default config.yaml",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipInitAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := conf.WriteDefaultConfig(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}

func dumpCommand(ctx *app.Context) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.Settings
			if !showSecrets {
				settings = settings.Redacted()
			}
			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("error marshaling settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print API keys and passwords unmasked")
	return cmd
}
