package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// hookEvents lists the six lifecycle hooks this installer registers,
// mapping each to its binary name under cmd/hooks/.
var hookEvents = []string{
	"PreCompact",
	"SessionStart",
	"UserPromptSubmit",
	"SubagentStart",
	"SubagentStop",
	"SessionEnd",
}

func hookBinaryName(event string) string {
	switch event {
	case "PreCompact":
		return "precompact"
	case "SessionStart":
		return "sessionstart"
	case "UserPromptSubmit":
		return "userpromptsubmit"
	case "SubagentStart":
		return "subagentstart"
	case "SubagentStop":
		return "subagentstop"
	case "SessionEnd":
		return "sessionend"
	}
	return ""
}

// hookEntry mirrors the host's settings.json hook registration shape: one
// matcher group containing one or more command hooks.
type hookEntry struct {
	Matcher string           `json:"matcher,omitempty"`
	Hooks   []hookCommandDef `json:"hooks"`
}

type hookCommandDef struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

type hostSettings struct {
	Hooks map[string][]hookEntry `json:"hooks"`
	Other map[string]json.RawMessage `json:"-"`
}

func settingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}

// quotedCommand quotes path if it contains spaces, per explicit
// installer requirement.
func quotedCommand(path string) string {
	for _, r := range path {
		if r == ' ' {
			return fmt.Sprintf("%q", path)
		}
	}
	return path
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register infinite-context's hooks in the host's settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}

		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve own executable path: %w", err)
		}
		binDir := filepath.Dir(exePath)

		settings, err := readSettings(path)
		if err != nil {
			return err
		}
		if settings.Hooks == nil {
			settings.Hooks = map[string][]hookEntry{}
		}

		for _, event := range hookEvents {
			hookPath := filepath.Join(binDir, hookBinaryName(event))
			settings.Hooks[event] = []hookEntry{
				{
					Hooks: []hookCommandDef{
						{Type: "command", Command: quotedCommand(hookPath)},
					},
				},
			}
		}

		if err := writeSettings(path, settings); err != nil {
			return err
		}
		fmt.Printf("installed hooks into %s\n", path)
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove infinite-context's hooks from the host's settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}

		settings, err := readSettings(path)
		if err != nil {
			return err
		}
		if settings.Hooks == nil {
			fmt.Println("no hooks registered")
			return nil
		}
		for _, event := range hookEvents {
			delete(settings.Hooks, event)
		}
		if err := writeSettings(path, settings); err != nil {
			return err
		}
		fmt.Printf("removed hooks from %s\n", path)
		return nil
	},
}

func readSettings(path string) (*hostSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &hostSettings{Hooks: map[string][]hookEntry{}}, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	settings := &hostSettings{Hooks: map[string][]hookEntry{}, Other: raw}
	if hooksRaw, ok := raw["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &settings.Hooks); err != nil {
			return nil, fmt.Errorf("parse hooks section: %w", err)
		}
	}
	delete(settings.Other, "hooks")
	return settings, nil
}

// writeSettings writes settings atomically (temp file + rename), preserving
// every other top-level key already present in the host's file.
func writeSettings(path string, settings *hostSettings) error {
	merged := map[string]json.RawMessage{}
	for k, v := range settings.Other {
		merged[k] = v
	}
	hooksEncoded, err := json.Marshal(settings.Hooks)
	if err != nil {
		return fmt.Errorf("marshal hooks: %w", err)
	}
	merged["hooks"] = hooksEncoded

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp settings file: %w", err)
	}
	return os.Rename(tmpPath, path)
}
