package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a"}, CSV("a"))
	assert.Equal(t, []string{"a", "b"}, CSV("a, b"))
	assert.Equal(t, []string{"a", "b"}, CSV("a,,b,"))
}

func TestEnvDefault(t *testing.T) {
	t.Setenv("CLIPSTREAM_TEST_ENV", "set")
	assert.Equal(t, "set", EnvDefault("CLIPSTREAM_TEST_ENV", "def"))
	assert.Equal(t, "def", EnvDefault("CLIPSTREAM_TEST_ENV_MISSING", "def"))
}

func TestEnvDurationDefault(t *testing.T) {
	t.Setenv("CLIPSTREAM_TEST_TTL", "30m")
	assert.Equal(t, 30*time.Minute, EnvDurationDefault("CLIPSTREAM_TEST_TTL", time.Hour))

	t.Setenv("CLIPSTREAM_TEST_TTL_BAD", "bogus")
	assert.Equal(t, time.Hour, EnvDurationDefault("CLIPSTREAM_TEST_TTL_BAD", time.Hour))

	assert.Equal(t, time.Hour, EnvDurationDefault("CLIPSTREAM_TEST_TTL_MISSING", time.Hour))
}
