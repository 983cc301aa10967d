package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
http:
  address: ":9090"
database:
  host: "db"
  port: 5432
  user: "u"
  password: "p"
  name: "travelmarket"
  ssl_mode: "disable"
booking:
  request_expiry_hours: 24
`
	assert.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=travelmarket sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 24, cfg.Booking.RequestExpiryHours)

	// unset values fall back to defaults
	assert.Equal(t, 10, cfg.Booking.ScheduleLockSeconds)
	assert.Equal(t, 60, cfg.Booking.SchedulesCacheTTLSec)
	assert.Equal(t, 5, cfg.Worker.ExpirationSweepMinutes)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}
