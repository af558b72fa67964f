package config

const (
	defaultStateDirName          = ".nsort"
	defaultListen                = "127.0.0.1:7338"
	defaultDebounceMS            = 200
	defaultIndexBackend          = "sqlite"
	defaultLogLevel              = "info"
	defaultLogFormat             = "auto"
	defaultPropertyName          = "done"
	defaultTrueContainer         = "Done"
	defaultFalseContainer        = "Inbox"
	defaultCompletedDateProperty = "completed_date"
	defaultBacklogContainer      = "Backlog"
	defaultIceboxContainer       = "Icebox"
)

// Default returns a configuration with every knob at its default value.
func Default() Config {
	return Config{
		Sort: Sort{
			PropertyName:          defaultPropertyName,
			TrueContainer:         defaultTrueContainer,
			FalseContainer:        defaultFalseContainer,
			CompletedDateProperty: defaultCompletedDateProperty,
			BacklogContainer:      defaultBacklogContainer,
			IceboxContainer:       defaultIceboxContainer,
		},
		Daemon: Daemon{
			Listen:       defaultListen,
			DebounceMS:   defaultDebounceMS,
			IndexBackend: defaultIndexBackend,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
