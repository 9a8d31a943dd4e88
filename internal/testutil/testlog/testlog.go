package testlog

import (
	"testing"

	"github.com/danmuck/fastplan/internal/logging"
	"github.com/danmuck/fastplan/internal/logging/logs"
)

// Start configures test logging and brackets the test's log lines.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logs.Infof("test=%s start", t.Name())
	t.Cleanup(func() {
		logs.Infof("test=%s done failed=%t", t.Name(), t.Failed())
	})
}
