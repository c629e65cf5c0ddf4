package config

import (
	"path/filepath"
	"time"
)

type DB struct {
	// Path of the sqlite settings database. Empty means game.awgen inside
	// the project folder.
	Path     string `envconfig:"PATH"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"silent"`
}

type Redis struct {
	URL          string        `envconfig:"URL"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"awgen:setting:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Cache struct {
	Size int           `envconfig:"SIZE" default:"512"`
	TTL  time.Duration `envconfig:"TTL" default:"1h"`
}

type Scripts struct {
	ProjectFolder string        `envconfig:"PROJECT_FOLDER" default:"."`
	SocketBuffer  int           `envconfig:"SOCKET_BUFFER" default:"64"`
	ShutdownWait  time.Duration `envconfig:"SHUTDOWN_WAIT" default:"5s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"auto"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[awgen]"`
}

type Server struct {
	Enabled bool   `envconfig:"ENABLED" default:"true"`
	Scheme  string `envconfig:"SCHEME" default:"http"`
	Host    string `envconfig:"HOST" default:"localhost"`
	Port    int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Redis     *Redis     `envconfig:"REDIS"`
	Cache     *Cache     `envconfig:"CACHE"`
	Scripts   *Scripts   `envconfig:"SCRIPTS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
}

// DatabasePath returns the settings database location.
func (a *App) DatabasePath() string {
	if a.DB != nil && a.DB.Path != "" {
		return a.DB.Path
	}
	folder := "."
	if a.Scripts != nil && a.Scripts.ProjectFolder != "" {
		folder = a.Scripts.ProjectFolder
	}
	return filepath.Join(folder, "game.awgen")
}
