package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brianly1003/foldersentinel/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage foldersentinel configuration.

Without subcommands, shows the current effective configuration.

Examples:
  foldersentinel config                 # Show current config
  foldersentinel config init            # Create config file with defaults
  foldersentinel config path            # Show config file location
  foldersentinel config get server.port
  foldersentinel config set disposal.default_mode permanent`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings and documentation.

By default, creates ~/.foldersentinel/config.yaml.
Use --local to create ./config.yaml in the current directory.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printConfigPaths(cmd.OutOrStdout())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Keys use dot notation to access nested values, e.g. watcher.debounce_ms.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		value, err := getConfigValue(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in ~/.foldersentinel/config.yaml.

Creates the config file if it doesn't exist.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.foldersentinel/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := config.DefaultConfigFile
	if !configInitLocal {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, config.DefaultConfigFile)
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	return nil
}

func printConfigPaths(out io.Writer) error {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config dir: %w", err)
	}

	locations := []string{
		filepath.Join(".", config.DefaultConfigFile),
		filepath.Join(configDir, config.DefaultConfigFile),
		filepath.Join("/etc/foldersentinel", config.DefaultConfigFile),
	}
	if cfgFile != "" {
		locations = []string{cfgFile}
	}

	fmt.Fprintln(out, "Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, loc, exists)
	}
	fmt.Fprintf(out, "\nConfig directory: %s\n", configDir)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, config.DefaultConfigFile)

	data := make(map[string]interface{})
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
		if data == nil {
			data = make(map[string]interface{})
		}
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, configPath)
	return nil
}

// getConfigValue looks key up in the YAML form of cfg.
func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	var current interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
		if current, ok = m[part]; !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
	}
	if _, ok := current.(map[string]interface{}); ok {
		return nil, fmt.Errorf("%s is a section, not a value", key)
	}
	return current, nil
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for _, part := range parts[:len(parts)-1] {
		if _, ok := current[part]; !ok {
			current[part] = make(map[string]interface{})
		}
		nested, ok := current[part].(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot set nested value: %s is not a map", part)
		}
		current = nested
	}

	current[parts[len(parts)-1]] = parseValue(value)
	return nil
}

func parseValue(value string) interface{} {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if strings.Contains(value, ",") {
		items := strings.Split(value, ",")
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
		}
		return items
	}
	return value
}

const defaultConfigYAML = `# foldersentinel configuration
# Every key can be overridden with an environment variable, e.g.
# FSENTINEL_SERVER_PORT=9000 or FSENTINEL_DISPOSAL_DEFAULT_MODE=permanent

# REST API and WebSocket stream (/ws)
server:
  enabled: true
  # Bind address (use 0.0.0.0 to allow external connections)
  host: "127.0.0.1"
  port: 8780
  # Extra browser origins allowed besides localhost ("*" allows any)
  allowed_origins: []

# Watch roots
roots:
  # Where the root list is persisted (default: ~/.foldersentinel/watchroots.yaml)
  # file: "~/.foldersentinel/watchroots.yaml"
  # Start monitoring at launch when roots exist
  auto_start: true

# Watch registry
watcher:
  # Coalesce a create followed by a delete within this window (0 disables)
  debounce_ms: 0
  # Child directory names never reported as new (glob syntax)
  ignore_patterns:
    - ".Trash-*"
    - ".Trashes"
    - "$RECYCLE.BIN"
    - "System Volume Information"
    - "lost+found"
    - ".fseventsd"
    - ".Spotlight-V100"

# Disposal of pending folders
disposal:
  # Trash directory (default: the platform trash)
  # trash_dir: "~/.local/share/Trash"
  # trash or permanent
  default_mode: "trash"
  # Extra attempts per folder before a batch aborts
  default_retries: 0

# Persistent audit log of session log entries
audit:
  enabled: true
  # path: "~/.foldersentinel/audit.db"

# Event hub
hub:
  buffer_size: 256

# Logging
logging:
  # trace, debug, info, warn, error
  level: "info"
  # console (human-readable) or json
  format: "console"
`
