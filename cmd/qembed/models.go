package main

import (
	"fmt"
	"os"

	"github.com/matsen/qembed/internal/config"
	"github.com/matsen/qembed/internal/registry"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsVerifyCmd)
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect locally installed encoder models",
}

// openRegistry resolves the models directory the same way embedding does.
func openRegistry() (*registry.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dir := firstNonEmpty(opts.modelsDir, os.Getenv("QEMBED_MODELS_DIR"), cfg.ModelsDir, registry.DefaultRoot())
	return registry.New(dir), nil
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		models, err := reg.List()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Models under %s:\n", reg.Root())
		if len(models) == 0 {
			fmt.Fprintln(os.Stderr, "(none)")
			return nil
		}
		for _, m := range models {
			fmt.Println(m.Name)
		}
		return nil
	},
}

var modelsVerifyCmd = &cobra.Command{
	Use:   "verify <model>",
	Short: "Verify a model's files against its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		m, err := reg.Resolve(args[0])
		if err != nil {
			return err
		}

		if err := m.Verify(); err != nil {
			return fmt.Errorf("verifying %s: %w", m.Name, err)
		}
		fmt.Printf("%s: ok\n", m.Name)
		return nil
	},
}
