package observability

import (
	"github.com/rs/zerolog"
)

// RunLogger tags every event of one plan run with its id and transport.
func RunLogger(base zerolog.Logger, runID, transport string) zerolog.Logger {
	return base.With().Str("run_id", runID).Str("transport", transport).Logger()
}
