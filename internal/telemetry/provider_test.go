package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv(EnvEndpoint, "")
	shutdown, err := Setup(context.Background(), "print-station", "cassa-1")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupDisabledExplicitly(t *testing.T) {
	t.Setenv(EnvEndpoint, "http://localhost:4318")
	t.Setenv(EnvEnabled, "false")
	shutdown, err := Setup(context.Background(), "print-station", "cassa-1")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
