package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/hexapod/pkg/dynamixel"
	"github.com/gwillem/hexapod/pkg/kinematics"
)

const DefaultConfigFile = "hexapod.json"

// Config holds the robot configuration
type Config struct {
	Port        string                `json:"port" yaml:"port"`
	BaudRate    int                   `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	ReturnLevel dynamixel.ReturnLevel `json:"return_level" yaml:"return_level"`
	Body        kinematics.BodyParams `json:"body" yaml:"body"`
	Calibration Calibration           `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	Gait        GaitConfig            `json:"gait" yaml:"gait"`
	InitialPose string                `json:"initial_pose,omitempty" yaml:"initial_pose,omitempty"`
}

// GaitConfig tunes the walking loop.
type GaitConfig struct {
	LiftHeight   float64 `json:"lift_height" yaml:"lift_height"`
	SettleMillis int     `json:"settle_ms" yaml:"settle_ms"`
	MaxStep      float64 `json:"max_step" yaml:"max_step"`
	MaxRotation  float64 `json:"max_rotation" yaml:"max_rotation"` // radians
}

// DefaultConfig returns the configuration of the reference build.
func DefaultConfig() *Config {
	return &Config{
		BaudRate:    dynamixel.DefaultBaudRate,
		ReturnLevel: dynamixel.ReturnAll,
		Body:        kinematics.DefaultBodyParams(),
		Calibration: DefaultCalibration(),
		Gait: GaitConfig{
			LiftHeight:   DefaultLiftHeight,
			SettleMillis: 200,
			MaxStep:      DefaultMaxStep,
			MaxRotation:  DefaultMaxRotation,
		},
		InitialPose: PoseFlatQuad.String(),
	}
}

// IsCalibrated returns true if every leg has servo IDs
func (c *Config) IsCalibrated() bool {
	return len(c.Calibration) == len(AllLegs()) && c.Calibration.Validate() == nil
}

// Settle returns the settle interval as a duration.
func (g GaitConfig) Settle() time.Duration {
	return time.Duration(g.SettleMillis) * time.Millisecond
}

// Pose parses InitialPose, defaulting to flat_quad.
func (c *Config) Pose() (Pose, error) {
	if c.InitialPose == "" {
		return PoseFlatQuad, nil
	}
	return ParsePose(c.InitialPose)
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON. Fields missing from
// the file keep their DefaultConfig values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file, in YAML or JSON by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
