package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/ideamans/go-sheetrows/adapters/excel"
	"github.com/ideamans/go-sheetrows/adapters/googlesheets"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFileName = "sheetrows"
	configFileType = "toml"
	envPrefix      = "SHEETROWS"

	cfgKeyBackend         = "backend"
	cfgKeyCredentialsFile = "google.credentials_file"
	cfgKeyMaxRetries      = "google.max_retries"
	cfgKeyRetryInterval   = "google.retry_interval"
	cfgKeyExcelDir        = "excel.dir"
	cfgKeyServeAddr       = "serve.addr"

	backendGoogleSheets = "googlesheets"
	backendExcel        = "excel"
)

// fileConfig is the layout written by "config init"
type fileConfig struct {
	Backend string       `toml:"backend"`
	Google  googleConfig `toml:"google"`
	Excel   excelConfig  `toml:"excel"`
	Serve   serveConfig  `toml:"serve"`
}

type googleConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	MaxRetries      int    `toml:"max_retries"`
	RetryInterval   string `toml:"retry_interval"`
}

type excelConfig struct {
	Dir string `toml:"dir"`
}

type serveConfig struct {
	Addr string `toml:"addr"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend: backendGoogleSheets,
		Google: googleConfig{
			MaxRetries:    googlesheets.DefaultConfig().MaxRetries,
			RetryInterval: googlesheets.DefaultConfig().RetryInterval.String(),
		},
		Excel: excelConfig{Dir: "."},
		Serve: serveConfig{Addr: ":8080"},
	}
}

// loadConfig reads the TOML config with SHEETROWS_* environment overrides.
// Without an explicit path a missing file is not an error.
func loadConfig(path string) (*viper.Viper, error) {
	d := defaultFileConfig()

	v := viper.New()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyMaxRetries, d.Google.MaxRetries)
	v.SetDefault(cfgKeyRetryInterval, d.Google.RetryInterval)
	v.SetDefault(cfgKeyExcelDir, d.Excel.Dir)
	v.SetDefault(cfgKeyServeAddr, d.Serve.Addr)
	v.SetDefault(cfgKeyCredentialsFile, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configFileType)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return v, nil
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "sheetrows"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// newFeed opens the backend selected by the configuration
func newFeed(ctx context.Context, v *viper.Viper, log logrus.FieldLogger) (sheetrows.Feed, error) {
	switch backend := v.GetString(cfgKeyBackend); backend {
	case backendExcel:
		return excel.New(&excel.Config{Dir: v.GetString(cfgKeyExcelDir), Logger: log})

	case backendGoogleSheets:
		interval, err := time.ParseDuration(v.GetString(cfgKeyRetryInterval))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", cfgKeyRetryInterval, err)
		}
		config := googlesheets.Config{
			MaxRetries:    v.GetInt(cfgKeyMaxRetries),
			RetryInterval: interval,
			Logger:        log,
		}
		if file := v.GetString(cfgKeyCredentialsFile); file != "" {
			return googlesheets.NewWithJSONKeyFile(ctx, config, file)
		}
		return googlesheets.NewWithDefaultCredentials(ctx, config)

	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, backendGoogleSheets, backendExcel)
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a default configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipFeed: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFileName + "." + configFileType
			if len(args) == 1 {
				path = args[0]
			}
			if err := writeDefaultConfig(path, force); err != nil {
				return err
			}
			fmt.Fprintln(a.out(cmd), "wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := toml.Marshal(defaultFileConfig())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
