package common

import (
	"os"
	"path/filepath"
	"testing"

	logging "github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "flatfs.log")
	lf, err := ConfigureLogging(fn, "warning")
	require.NoError(t, err)
	defer lf.Close()

	log := logging.MustGetLogger("logtest")
	log.Info("hidden message")
	log.Warning("visible message")

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	require.NotContains(t, string(data), "hidden message")
	require.Contains(t, string(data), "WARNING logtest visible message")

	_, err = ConfigureLogging("", "loud")
	require.Error(t, err)
}
