package config

// Configuration keys. Each is a command line flag, a config file key and,
// upper-cased with dashes as underscores, a BOOKSHELF_ environment variable.
const (
	ConfigFile     = "config"
	Port           = "port"
	DBPath         = "db-path"
	LogLevel       = "log-level"
	GinMode        = "gin-mode"
	CORSOrigins    = "cors-origins"
	EventQueueSize = "event-queue-size"
	LibraryWorkers = "library-workers"
	ServerURL      = "server-url"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "BOOKSHELF"
