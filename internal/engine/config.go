package engine

// Config contains configuration for the engine
type Config struct {
	// MaxParallelTasks is the maximum number of tasks to run at once in
	// parallel mode
	MaxParallelTasks int

	// ReportHandledAsFailed records failures recovered by an error handler
	// as Failed (with Handled set) instead of Executed
	ReportHandledAsFailed bool
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxParallelTasks: 4,
	}
}

// RunOptions selects how a run resolves and schedules its targets
type RunOptions struct {
	// Exclusive runs only the requested targets, in the order requested
	Exclusive bool

	// SkipDependencies is an alias for Exclusive
	SkipDependencies bool

	// Parallel runs independent branches of the graph concurrently
	Parallel bool

	// SkipUnresolved drops references to unregistered tasks instead of
	// failing the run
	SkipUnresolved bool
}

func (o RunOptions) exclusive() bool {
	return o.Exclusive || o.SkipDependencies
}
