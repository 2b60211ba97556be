// Package config provides YAML-based engine configuration loading for the
// blockstage platform.
package config

import "time"

// EngineConfig contains all configuration for the simulation engine.
type EngineConfig struct {
	Physics PhysicsConfig `yaml:"physics"`
	Sandbox SandboxConfig `yaml:"sandbox"`
	Preview PreviewConfig `yaml:"preview"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// PhysicsConfig defines integration parameters for the simulation loop.
type PhysicsConfig struct {
	Gravity       float64 `yaml:"gravity"`         // Cells per second squared
	MaxFrameDelta float64 `yaml:"max_frame_delta"` // Longest frame gap integrated as-is, in seconds
}

// SandboxConfig bounds the isolated script context.
type SandboxConfig struct {
	InitTimeoutMs int `yaml:"init_timeout_ms"` // Context startup deadline
	RunTimeoutMs  int `yaml:"run_timeout_ms"`  // Per-handler deadline
}

// InitTimeout returns the startup deadline as a duration.
func (c SandboxConfig) InitTimeout() time.Duration {
	return time.Duration(c.InitTimeoutMs) * time.Millisecond
}

// RunTimeout returns the per-handler deadline as a duration.
func (c SandboxConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMs) * time.Millisecond
}

// PreviewConfig defines the terminal preview loop.
type PreviewConfig struct {
	FPS int `yaml:"fps"` // Frames per second for the preview tick
}

// TickInterval returns the preview frame interval. A non-positive FPS
// falls back to 30.
func (c PreviewConfig) TickInterval() time.Duration {
	fps := c.FPS
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}

// StorageConfig locates the project database.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite file, ~ expands to the home directory
}

// ServerConfig defines the SSH preview server.
type ServerConfig struct {
	Address     string `yaml:"address"`       // host:port to listen on
	HostKeyPath string `yaml:"host_key_path"` // Empty auto-generates under ~/.blockstage
	IdleMinutes int    `yaml:"idle_minutes"`  // Idle connection timeout
}

// IdleTimeout returns the idle connection timeout as a duration.
func (c ServerConfig) IdleTimeout() time.Duration {
	if c.IdleMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.IdleMinutes) * time.Minute
}
