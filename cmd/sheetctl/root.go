package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"sheetinsight-backend/internal/bootstrap"
	"sheetinsight-backend/internal/shared/config"
)

// settings are resolved from flags, then environment, then the config file.
type settings struct {
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	Env         string `mapstructure:"env" yaml:"env"`
	Output      string `mapstructure:"output" yaml:"output"`
}

// appBuilder constructs the services a command needs.
type appBuilder func(ctx context.Context, s settings) (*bootstrap.App, error)

func defaultBuilder(ctx context.Context, s settings) (*bootstrap.App, error) {
	if strings.TrimSpace(s.DatabaseURL) == "" {
		return nil, fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
	}
	cfg := config.Load()
	cfg.DatabaseURL = s.DatabaseURL
	cfg.Env = s.Env
	cfg.QueueURL = ""
	return bootstrap.BuildWithOptions(ctx, cfg, bootstrap.Options{DisableLocalQueue: true})
}

func newRootCmd(build appBuilder) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "sheetctl",
		Short:         "Operator tooling for the spreadsheet insight backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file with database_url, env, output")
	pf.String("database-url", "", "Postgres connection string (env DATABASE_URL)")
	pf.String("env", "production", "environment name passed to the app builder (env ENV)")
	pf.StringP("output", "o", "yaml", "output format: yaml or json")

	v.SetDefault("env", "production")
	v.SetDefault("output", "yaml")
	_ = v.BindPFlag("database_url", pf.Lookup("database-url"))
	_ = v.BindPFlag("env", pf.Lookup("env"))
	_ = v.BindPFlag("output", pf.Lookup("output"))
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "ENV")

	load := func() (settings, error) {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return settings{}, fmt.Errorf("read config: %w", err)
			}
		}
		var s settings
		if err := v.Unmarshal(&s); err != nil {
			return settings{}, fmt.Errorf("unmarshal config: %w", err)
		}
		s.Output = strings.ToLower(strings.TrimSpace(s.Output))
		if s.Output != "yaml" && s.Output != "json" {
			return settings{}, fmt.Errorf("invalid output %q (use yaml or json)", s.Output)
		}
		return s, nil
	}

	root.AddCommand(newCreateAdminCmd(load, build), newStatsCmd(load, build))
	return root
}

func render(w io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	// Round-trip through JSON so yaml keys match the API field names.
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
