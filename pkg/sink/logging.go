package sink

import (
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// ConfigureLogging sets backend verbosity for all hogtrace loggers.
// Verbosity 0 is quiet, 1 adds info, 2 adds debug (including VM traces).
// A non-empty path writes to that file instead of stderr.
func ConfigureLogging(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}
