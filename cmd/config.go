package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sanix-darker/streamkernel/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage streamkernel configuration",
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigEffectiveCmd())
	rootCmd.AddCommand(configCmd)
}

const sampleConfigYAML = `# streamkernel configuration
adapter: ""            # explicit adapter name; empty means auto-detect
debug: false
retry:
  attempts: 2
  base_delay: 1s
  max_delay: 30s
timeout:
  initial_token: 30s
  inter_token: 15s
`

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create default config file at ~/.config/streamkernel/config.yml",
		Run: func(cmd *cobra.Command, args []string) {
			conf := config.NewDefaultConfig()
			cfgPath, err := config.GetConfigFilePath(conf)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			dir := filepath.Dir(cfgPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
				os.Exit(1)
			}

			if _, err := os.Stat(cfgPath); err == nil {
				fmt.Printf("Config file already exists at %s\n", cfgPath)
				return
			}

			if err := os.WriteFile(cfgPath, []byte(sampleConfigYAML), 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("Config file created at %s\n", cfgPath)
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the config file on disk, or the defaults if none exists",
		Run: func(cmd *cobra.Command, args []string) {
			conf := config.NewDefaultConfig()
			cfgPath, err := config.GetConfigFilePath(conf)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			data, err := os.ReadFile(cfgPath)
			if err != nil {
				fmt.Printf("No config file found at %s\n", cfgPath)
				fmt.Println("\nDefault configuration:")
				fmt.Println(sampleConfigYAML)
				return
			}

			fmt.Printf("# Config file: %s\n", cfgPath)
			fmt.Println(string(data))
		},
	}
}

func newConfigEffectiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "effective",
		Short: "Print the effective defaults after loading any config file",
		Run: func(cmd *cobra.Command, args []string) {
			conf := config.NewDefaultConfig()
			out, err := yaml.Marshal(buildEffectiveConfig(conf))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding config: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(out))
		},
	}
}

func buildEffectiveConfig(conf config.Config) map[string]interface{} {
	return map[string]interface{}{
		"debug":   conf.Debug,
		"adapter": conf.DefaultAdapter,
		"retry": map[string]interface{}{
			"attempts":   conf.DefaultRetry.Attempts,
			"backoff":    string(conf.DefaultRetry.Backoff),
			"base_delay": conf.DefaultRetry.BaseDelay.String(),
			"max_delay":  conf.DefaultRetry.MaxDelay.String(),
		},
		"timeout": map[string]interface{}{
			"initial_token": conf.DefaultTimeout.InitialToken.String(),
			"inter_token":   conf.DefaultTimeout.InterToken.String(),
		},
		"checkpoints": map[string]interface{}{
			"interval": conf.DefaultCheckpoints.Interval,
		},
		"monitoring": map[string]interface{}{
			"enabled":     conf.DefaultMonitoring.Enabled,
			"sample_rate": conf.DefaultMonitoring.SampleRate,
		},
	}
}
