package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Elizarfish/infinite-context/internal/config"
	"github.com/Elizarfish/infinite-context/internal/paths"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or modify configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the whole config, or a single key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(paths.ConfigPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if len(args) == 0 {
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		value, ok := configField(cfg, args[0])
		if !ok {
			return fmt.Errorf("unknown config key %q", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single config key and persist it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(paths.ConfigPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := setConfigField(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg, paths.ConfigPath()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		config.ResetConfig()
		fmt.Printf("set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore config.json to built-in defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults := config.DefaultConfig()
		if err := config.Save(defaults, paths.ConfigPath()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		config.ResetConfig()
		fmt.Println("config reset to defaults")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configResetCmd)
}

func configField(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "maxRestoreTokens":
		return strconv.Itoa(cfg.MaxRestoreTokens), true
	case "maxMemoriesPerRestore":
		return strconv.Itoa(cfg.MaxMemoriesPerRestore), true
	case "maxPromptRecallResults":
		return strconv.Itoa(cfg.MaxPromptRecallResults), true
	case "decayFactor":
		return strconv.FormatFloat(cfg.DecayFactor, 'f', -1, 64), true
	case "decayIntervalDays":
		return strconv.Itoa(cfg.DecayIntervalDays), true
	case "pruneThreshold":
		return strconv.FormatFloat(cfg.PruneThreshold, 'f', -1, 64), true
	case "scoreFloor":
		return strconv.FormatFloat(cfg.ScoreFloor, 'f', -1, 64), true
	case "maxMemoriesPerProject":
		return strconv.Itoa(cfg.MaxMemoriesPerProject), true
	}
	return "", false
}

func setConfigField(cfg *config.Config, key, value string) error {
	switch key {
	case "maxRestoreTokens":
		return setInt(&cfg.MaxRestoreTokens, value)
	case "maxMemoriesPerRestore":
		return setInt(&cfg.MaxMemoriesPerRestore, value)
	case "maxPromptRecallResults":
		return setInt(&cfg.MaxPromptRecallResults, value)
	case "decayFactor":
		return setFloat(&cfg.DecayFactor, value)
	case "decayIntervalDays":
		return setInt(&cfg.DecayIntervalDays, value)
	case "pruneThreshold":
		return setFloat(&cfg.PruneThreshold, value)
	case "scoreFloor":
		return setFloat(&cfg.ScoreFloor, value)
	case "maxMemoriesPerProject":
		return setInt(&cfg.MaxMemoriesPerProject, value)
	}
	return fmt.Errorf("unknown config key %q", key)
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", value, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", value, err)
	}
	*dst = f
	return nil
}
