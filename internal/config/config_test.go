package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "adjacent", c.CSVLayout)
	assert.Equal(t, 7, c.RecentWindow)
	assert.Equal(t, 5*1024*1024, c.StorageQuotaBytes)
	assert.Equal(t, 2025, c.HourLabelLateYear)
	assert.Equal(t, 2026, c.HourLabelEarlyYear)
	assert.Equal(t, 11, c.HourLabelLateFromMonth)
	assert.Equal(t, filepath.Join(home, ".vitals", "data"), c.DataDir)

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VITALS_CSV_LAYOUT", "wide")
	t.Setenv("VITALS_RECENT_WINDOW", "14")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "wide", c.CSVLayout)
	assert.Equal(t, 14, c.RecentWindow)
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("timezone", "UTC"))
	require.NoError(t, c.Set("chart_width", "800"))
	require.NoError(t, Save(c, path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "chart_width: 800")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "UTC", again.Timezone)
	assert.Equal(t, 800, again.ChartWidth)
	loc, err := again.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestSetRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	assert.Error(t, c.Set("csv_layout", "tall"))
	assert.Equal(t, "adjacent", c.CSVLayout, "failed set must not change the config")
	assert.Error(t, c.Set("recent_window", "zero"))
	assert.Error(t, c.Set("recent_window", "0"))
	assert.Error(t, c.Set("hour_label_late_from_month", "13"))
	assert.Error(t, c.Set("timezone", "Mars/Olympus"))
	assert.Error(t, c.Set("nope", "1"))
	assert.NoError(t, c.Set("log_level", "DEBUG"))
	assert.Equal(t, "debug", c.LogLevel)
}

func TestFieldsListsEveryKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	for _, kv := range c.Fields() {
		if kv[0] == "data_dir" {
			continue
		}
		assert.NoError(t, c.Set(kv[0], kv[1]), kv[0])
	}
}
