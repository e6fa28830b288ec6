package client_test

import (
	"dee-studio/internal/config"
)

func testModelsConfig() *config.ModelsConfig {
	return &config.ModelsConfig{
		Entries: map[string]config.ModelEntryConfig{
			"sdxl": {Enabled: true},
			"flux": {Enabled: true},
		},
	}
}

func alwaysAvailable(_ string, _ config.ModelEntryConfig) bool {
	return true
}
