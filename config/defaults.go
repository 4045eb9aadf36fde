package config

const (
	defaultWidth        = 3
	defaultAlignment    = "calendar"
	defaultPrevious     = 1
	defaultNext         = 1
	defaultTimezone     = "local"
	defaultBind         = "127.0.0.1:8080"
	defaultDatabasePath = "~/.local/share/qrelease/qrelease.db"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

var defaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Calendar: Calendar{
			Width:     defaultWidth,
			Alignment: defaultAlignment,
			Previous:  defaultPrevious,
			Next:      defaultNext,
			Timezone:  defaultTimezone,
		},
		Server: Server{
			Bind:           defaultBind,
			DatabasePath:   defaultDatabasePath,
			AllowedOrigins: append([]string(nil), defaultAllowedOrigins...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
