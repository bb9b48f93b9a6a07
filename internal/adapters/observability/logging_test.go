package observability_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"jacow_reports/internal/adapters/observability"
)

func TestNewLogger_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, observability.NewLogger("prod", "api", "debug").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, observability.NewLogger("dev", "api", "").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, observability.NewLogger("prod", "profilesync", "loud").GetLevel())
}
