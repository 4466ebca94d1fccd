package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/taskhub/pkg/logger"
)

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() { logger.Replace(nil) })

	require.NoError(t, ConfigureLogging("debug", "json"))
	require.NoError(t, ConfigureLogging("", "console"))
	require.NotNil(t, logger.Logger())
}
