package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete engine configuration
type Config struct {
	Server  Settings       `hcl:"server,block"`
	Tables  []TableConfig  `hcl:"table,block"`
	Devices []DeviceConfig `hcl:"device,block"`
	Players []PlayerConfig `hcl:"player,block"`
}

// Settings contains server-level configuration
type Settings struct {
	Address              string `hcl:"address,optional"`
	Port                 int    `hcl:"port,optional"`
	LogLevel             string `hcl:"log_level,optional"`
	DatabasePath         string `hcl:"database_path,optional"`
	// ActionTimeoutSeconds bounds how long a seat may sit on its turn before
	// being force-folded. Zero means the default; negative disables the sweep.
	ActionTimeoutSeconds int    `hcl:"action_timeout_seconds,optional"`
	DealerSeesCards      bool   `hcl:"dealer_sees_cards,optional"`
}

// TableConfig defines one table to create at startup
type TableConfig struct {
	Name       string `hcl:"name,label"`
	DealerUser string `hcl:"dealer_user"`
	SmallBlind int64  `hcl:"small_blind"`
	BigBlind   int64  `hcl:"big_blind"`
}

// DeviceConfig binds a barcode scanner serial to a table
type DeviceConfig struct {
	Serial string `hcl:"serial,label"`
	Table  string `hcl:"table"`
}

// PlayerConfig seeds a player wallet at startup
type PlayerConfig struct {
	ID      string `hcl:"id,label"`
	Name    string `hcl:"name,optional"`
	Balance int64  `hcl:"balance,optional"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		Server: Settings{
			Address:              "localhost",
			Port:                 8080,
			LogLevel:             "info",
			DatabasePath:         "huffleshuffle.db",
			ActionTimeoutSeconds: 30,
		},
		Tables: []TableConfig{
			{Name: "main", DealerUser: "dealer", SmallBlind: 5, BigBlind: 10},
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to defaults
// when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.DatabasePath == "" {
		config.Server.DatabasePath = "huffleshuffle.db"
	}
	if config.Server.ActionTimeoutSeconds == 0 {
		config.Server.ActionTimeoutSeconds = 30
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	names := make(map[string]bool)
	for _, table := range c.Tables {
		if names[table.Name] {
			return fmt.Errorf("table %s: duplicate name", table.Name)
		}
		names[table.Name] = true
		if table.DealerUser == "" {
			return fmt.Errorf("table %s: dealer_user is required", table.Name)
		}
		if table.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.BigBlind <= table.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", table.Name)
		}
	}

	for _, device := range c.Devices {
		if !names[device.Table] {
			return fmt.Errorf("device %s: unknown table %s", device.Serial, device.Table)
		}
	}

	for _, player := range c.Players {
		if player.Balance < 0 {
			return fmt.Errorf("player %s: balance must not be negative", player.ID)
		}
	}
	return nil
}

// ListenAddress returns the full listen address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
