package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultPort           = 8080
	DefaultLogLevel       = "info"
	DefaultGinMode        = "release"
	DefaultEventQueueSize = 256
	DefaultLibraryWorkers = 8
	DefaultServerURL      = "http://localhost:8080"
)

// DefaultCORSOrigins are the dev servers allowed when no origins are configured
var DefaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:5174"}

// Config is the resolved runtime configuration
type Config struct {
	Port           int
	DBPath         string
	LogLevel       string
	GinMode        string
	CORSOrigins    []string
	EventQueueSize int
	LibraryWorkers int
	ServerURL      string
}

// BindFlags registers the persistent flags of cmd and binds them to viper
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.String(ConfigFile, "", "Config file (yaml, toml or json)")
	viper.BindPFlag(ConfigFile, flags.Lookup(ConfigFile))

	flags.IntP(Port, "p", DefaultPort, "HTTP port to listen on")
	viper.BindPFlag(Port, flags.Lookup(Port))

	flags.String(DBPath, DefaultDBPath(), "SQLite database file")
	viper.BindPFlag(DBPath, flags.Lookup(DBPath))

	flags.String(LogLevel, DefaultLogLevel, "Log level (debug, info, warn, error)")
	viper.BindPFlag(LogLevel, flags.Lookup(LogLevel))

	flags.String(GinMode, DefaultGinMode, "Gin mode (debug, release, test)")
	viper.BindPFlag(GinMode, flags.Lookup(GinMode))

	flags.StringSlice(CORSOrigins, DefaultCORSOrigins, "Allowed CORS origins")
	viper.BindPFlag(CORSOrigins, flags.Lookup(CORSOrigins))

	flags.Int(EventQueueSize, DefaultEventQueueSize, "Buffered events per engine stream")
	viper.BindPFlag(EventQueueSize, flags.Lookup(EventQueueSize))

	flags.Int(LibraryWorkers, DefaultLibraryWorkers, "Concurrent lookups when loading the library")
	viper.BindPFlag(LibraryWorkers, flags.Lookup(LibraryWorkers))

	flags.String(ServerURL, DefaultServerURL, "Server address used by watch")
	viper.BindPFlag(ServerURL, flags.Lookup(ServerURL))
}

// Init enables environment overrides and reads the config file, if one is set
func Init() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if file := viper.GetString(ConfigFile); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %q: %w", file, err)
		}
	}
	return nil
}

// Load returns the configuration currently held by viper
func Load() Config {
	return Config{
		Port:           viper.GetInt(Port),
		DBPath:         viper.GetString(DBPath),
		LogLevel:       viper.GetString(LogLevel),
		GinMode:        viper.GetString(GinMode),
		CORSOrigins:    splitOrigins(viper.GetStringSlice(CORSOrigins)),
		EventQueueSize: viper.GetInt(EventQueueSize),
		LibraryWorkers: viper.GetInt(LibraryWorkers),
		ServerURL:      viper.GetString(ServerURL),
	}
}

// DefaultDBPath returns the OS-appropriate location of the database
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "bookshelf.db")
	}
	return filepath.Join(dir, "bookshelf", "bookshelf.db")
}

// splitOrigins accepts both a list and comma separated values from the environment
func splitOrigins(in []string) []string {
	var out []string
	for _, v := range in {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
