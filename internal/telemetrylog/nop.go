package telemetrylog

// Nop is a Logger that discards everything. Used where a component
// needs a Logger but a test isn't asserting on log output.
type Nop struct{}

func (Nop) Debug(string, ...Field) {}
func (Nop) Info(string, ...Field)  {}
func (Nop) Warn(string, ...Field)  {}
func (Nop) Error(string, ...Field) {}
