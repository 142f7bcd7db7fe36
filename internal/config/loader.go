package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/karmactl"
	projectConfigDir = ".karmactl"
	configFileName   = "config.yaml"
)

// LoadSettings loads the karmactl settings by layering default, user, and
// project files. The merged result is validated.
func LoadSettings() (Settings, error) {
	settings := GetDefaultSettings()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional.
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		settings, err = overlayIfExists(settings, userConfigPath)
		if err != nil {
			return Settings{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		settings, err = overlayIfExists(settings, projectConfigPath)
		if err != nil {
			return Settings{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// LoadSettingsFromPath loads a single settings file on top of the defaults.
// Unlike the layered files, an explicit path must exist.
func LoadSettingsFromPath(path string) (Settings, error) {
	overlay, err := loadSettingsFromFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error loading settings from %s: %w", path, err)
	}
	settings := mergeSettings(GetDefaultSettings(), overlay)
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func overlayIfExists(base Settings, path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadSettingsFromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return mergeSettings(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadSettingsFromFile loads Settings from a YAML file.
func loadSettingsFromFile(filePath string) (Settings, error) {
	var settings Settings
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Settings{}, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// mergeSettings merges 'overlay' into 'base'. Zero values in overlay leave
// base untouched.
func mergeSettings(base, overlay Settings) Settings {
	merged := base

	if overlay.Node != "" {
		merged.Node = overlay.Node
	}
	if overlay.LibDirectory != "" {
		merged.LibDirectory = overlay.LibDirectory
	}
	if overlay.StartScript != "" {
		merged.StartScript = overlay.StartScript
	}
	if overlay.StartPattern != "" {
		merged.StartPattern = overlay.StartPattern
	}
	if overlay.StartTimeoutMs != 0 {
		merged.StartTimeoutMs = overlay.StartTimeoutMs
	}
	if overlay.StopGracePeriodMs != 0 {
		merged.StopGracePeriodMs = overlay.StopGracePeriodMs
	}
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.OutputBufferLines != 0 {
		merged.OutputBufferLines = overlay.OutputBufferLines
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
