package logger

// Config selects the zap preset and sinks.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputFile string // stdout, stderr or a file path
}
