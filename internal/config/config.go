package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ShiftMode selects how "at most one open shift" is scoped for a tenant.
type ShiftMode string

const (
	ModeSingleRegister ShiftMode = "single_register"
	ModePerUser        ShiftMode = "per_user"
	ModeMultiStation   ShiftMode = "multi_station"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Shift struct {
		Mode            ShiftMode `mapstructure:"mode"`
		AllowForceClose bool      `mapstructure:"allow_force_close"`
		AutoApproveCash bool      `mapstructure:"auto_approve_cash"`
		// AlertThreshold is in minor units; 0 disables discrepancy alerts.
		AlertThreshold int64 `mapstructure:"alert_threshold"`
	} `mapstructure:"shift"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects unknown shift modes at startup instead of letting a
// free-form string leak into scope decisions.
func (c Config) Validate() error {
	switch c.Shift.Mode {
	case ModeSingleRegister, ModePerUser, ModeMultiStation:
	default:
		return fmt.Errorf("config: unknown shift.mode %q (want single_register, per_user or multi_station)", c.Shift.Mode)
	}
	if c.Shift.AlertThreshold < 0 {
		return fmt.Errorf("config: shift.alert_threshold must be >= 0")
	}
	if c.App.Timezone != "" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("config: invalid app.timezone %q: %w", c.App.Timezone, err)
		}
	}
	return nil
}

// Location resolves app.timezone; business dates are derived in this
// zone. Validate has already checked it parses, so a failure here only
// happens for a Config that skipped Load, and falls back to UTC.
func (c Config) Location() *time.Location {
	if c.App.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
