package cmd

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ThibaultBee/streampack/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing streampackd configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

You can redirect this output to a file to create a configuration template:

  streampackd config dump > config.yaml

Configuration can be set via:
  - Config file (config.yaml, /etc/streampackd/config.yaml, $HOME/.streampackd/config.yaml)
  - Environment variables (STREAMPACKD_PIPELINE_WITH_AUDIO, STREAMPACKD_MUXER_SERVICE_NAME, etc.)
  - Command-line flags (for --log-level, --log-format)

Environment variables use the STREAMPACKD_ prefix and underscores for nesting.
Example: pipeline.with_audio -> STREAMPACKD_PIPELINE_WITH_AUDIO`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map keyed by its mapstructure tags, so the
// dumped YAML matches the keys config files and env vars actually use.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		if field.Kind() == reflect.Struct {
			result[key] = toMap(field.Interface())
		} else {
			result[key] = field.Interface()
		}
	}
	return result
}

func runConfigDump(_ *cobra.Command, _ []string) error {
	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("loading defaults: %w", err)
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# streampackd Configuration File")
	fmt.Println("# ===============================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides use the STREAMPACKD_ prefix:")
	fmt.Println("#   STREAMPACKD_PIPELINE_WITH_AUDIO, STREAMPACKD_PIPELINE_WITH_VIDEO")
	fmt.Println("#   STREAMPACKD_LOGGING_LEVEL, STREAMPACKD_LOGGING_FORMAT")
	fmt.Println("#   STREAMPACKD_MUXER_SERVICE_NAME, STREAMPACKD_MUXER_PROVIDER_NAME")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
