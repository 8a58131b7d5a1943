package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aiguard/console/internal/config"
	"github.com/aiguard/console/internal/tui"
	"github.com/aiguard/console/internal/utils"
)

// runConfigCommand manages the config file. It runs without the full app so
// a broken config can still be inspected and rewritten.
func runConfigCommand(opts globalOptions, args []string) error {
	ca, err := parseCmdArgs(args)
	if err != nil {
		return err
	}
	config.LoadEnvFiles()

	path := opts.configPath
	if path == "" {
		path = config.DefaultPath()
	}

	switch ca.arg(0) {
	case "", "show":
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		return showConfig(cfg, path)

	case "path":
		fmt.Println(path)
		return nil

	case "init":
		cfg, err := loadForEdit(path)
		if err != nil {
			return err
		}
		if err := tui.EditConfig(tui.NewPrompter(), cfg); err != nil {
			return err
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		tui.PrintSuccess(fmt.Sprintf("Saved %s", path))
		return nil
	}
	return fmt.Errorf("unknown config command %q (expected show, path or init)", ca.arg(0))
}

// loadForEdit starts from the existing file when it parses, otherwise from
// defaults.
func loadForEdit(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return config.Default(), nil
	}
	tui.PrintWarn(fmt.Sprintf("Existing config is invalid (%v); starting from defaults", err))
	return config.Default(), nil
}

// showConfig prints the effective config with the API key masked.
func showConfig(cfg *config.Config, path string) error {
	masked := *cfg
	if masked.Identity.APIKey != "" {
		masked.Identity.APIKey = utils.MaskKey(masked.Identity.APIKey)
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	tui.PrintInfo(fmt.Sprintf("Effective config (file: %s)", path))
	fmt.Print(string(data))
	return nil
}
