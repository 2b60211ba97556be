package config

import (
	_ "embed"
)

//go:embed defaults/engine.yaml
var defaultEngineYAML []byte

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Physics: PhysicsConfig{
			Gravity:       9.8,
			MaxFrameDelta: 0.25,
		},
		Sandbox: SandboxConfig{
			InitTimeoutMs: 3000,
			RunTimeoutMs:  2000,
		},
		Preview: PreviewConfig{
			FPS: 30,
		},
		Storage: StorageConfig{
			Path: "~/.blockstage/projects.db",
		},
		Server: ServerConfig{
			Address:     ":23235",
			IdleMinutes: 30,
		},
	}
}

// GetDefaultYAML returns the embedded default engine YAML.
func GetDefaultYAML() []byte {
	return defaultEngineYAML
}
