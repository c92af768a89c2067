package config

import (
	"testing"
	"time"
)

func TestValidateMode(t *testing.T) {
	for _, mode := range []ShiftMode{ModeSingleRegister, ModePerUser, ModeMultiStation} {
		var c Config
		c.Shift.Mode = mode
		if err := c.Validate(); err != nil {
			t.Fatalf("mode %s rejected: %v", mode, err)
		}
	}

	for _, mode := range []ShiftMode{"", "multi-station", "per user", "kiosk"} {
		var c Config
		c.Shift.Mode = mode
		if err := c.Validate(); err == nil {
			t.Fatalf("mode %q accepted, want error", mode)
		}
	}
}

func TestValidateThreshold(t *testing.T) {
	var c Config
	c.Shift.Mode = ModePerUser
	c.Shift.AlertThreshold = -1
	if err := c.Validate(); err == nil {
		t.Fatal("negative threshold accepted, want error")
	}
}

func TestTimezone(t *testing.T) {
	var c Config
	c.Shift.Mode = ModePerUser

	if c.Location() != time.UTC {
		t.Fatalf("empty timezone resolves to %v, want UTC", c.Location())
	}

	c.App.Timezone = "Asia/Jakarta"
	if err := c.Validate(); err != nil {
		t.Fatalf("valid timezone rejected: %v", err)
	}
	if c.Location().String() != "Asia/Jakarta" {
		t.Fatalf("location = %v, want Asia/Jakarta", c.Location())
	}

	c.App.Timezone = "Mars/Olympus"
	if err := c.Validate(); err == nil {
		t.Fatal("bogus timezone accepted, want error")
	}
}
