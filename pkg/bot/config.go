package bot

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/decred/slog"
	"github.com/joho/godotenv"
	"github.com/jrick/logrotate/rotator"
)

const (
	appName     = "tablegames"
	envPrefix   = "TABLEGAMES_"
	maxLogFiles = 5
)

// Subsystems that get their own logger.
var subsystems = []string{"SRVR", "SHDN", "BNKR", "LOBY", "EVNT", "BOT", "DB"}

// Flags holds the command line flags of the table server.
type Flags struct {
	DataDir    *string
	ListenAddr *string
	DebugLevel *string
	Seed       *int64
	EnvFile    *string
}

// Config is the processed server configuration.
type Config struct {
	DataDir    string
	LogDir     string
	DBPath     string
	ListenAddr string
	DebugLevel string
	Seed       int64
}

// RegisterFlags registers the server flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		DataDir:    fs.String("datadir", "", "Directory for the database and logs"),
		ListenAddr: fs.String("listen", "", "Address the websocket gateway listens on"),
		DebugLevel: fs.String("debuglevel", "", "Logging level: trace, debug, info, warn, error"),
		Seed:       fs.Int64("seed", 0, "Deterministic deck seed (0 = random)"),
		EnvFile:    fs.String("envfile", ".env", "Optional file of TABLEGAMES_* variables"),
	}
}

// defaultDataDir returns ~/.tablegames, or a directory under the working
// directory when there is no home.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

// LoadConfig resolves the configuration. Flags win over TABLEGAMES_*
// variables, which win over the defaults. A missing env file is not an
// error.
func LoadConfig(flags *Flags) (*Config, error) {
	if *flags.EnvFile != "" {
		if err := godotenv.Load(*flags.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", *flags.EnvFile, err)
		}
	}

	cfg := &Config{
		DataDir:    env("DATADIR", defaultDataDir()),
		ListenAddr: env("LISTEN", "127.0.0.1:7878"),
		DebugLevel: env("DEBUGLEVEL", "info"),
	}
	if v := os.Getenv(envPrefix + "SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %sSEED: %w", envPrefix, err)
		}
		cfg.Seed = seed
	}

	// Apply overrides from flags
	if *flags.DataDir != "" {
		cfg.DataDir = *flags.DataDir
	}
	if *flags.ListenAddr != "" {
		cfg.ListenAddr = *flags.ListenAddr
	}
	if *flags.DebugLevel != "" {
		cfg.DebugLevel = *flags.DebugLevel
	}
	if *flags.Seed != 0 {
		cfg.Seed = *flags.Seed
	}

	if _, ok := slog.LevelFromString(cfg.DebugLevel); !ok {
		return nil, fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
	}

	cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	cfg.DBPath = filepath.Join(cfg.DataDir, appName+".sqlite")
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

// LogBackend hands out subsystem loggers that write to a rotated log file
// and to stdout.
type LogBackend struct {
	rotator *rotator.Rotator
	backend *slog.Backend
	level   slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

type logWriter struct {
	out io.Writer
	r   *rotator.Rotator
}

func (w logWriter) Write(p []byte) (int, error) {
	w.out.Write(p)
	return w.r.Write(p)
}

// SetupLogging opens the rotated log file in logDir and creates a logger
// for every subsystem at debugLevel.
func SetupLogging(logDir, debugLevel string) (*LogBackend, error) {
	level, ok := slog.LevelFromString(debugLevel)
	if !ok {
		return nil, fmt.Errorf("invalid debug level %q", debugLevel)
	}
	r, err := rotator.New(filepath.Join(logDir, appName+".log"), 10*1024, false, maxLogFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to create log rotator: %w", err)
	}

	lb := &LogBackend{
		rotator: r,
		backend: slog.NewBackend(logWriter{out: os.Stdout, r: r}),
		level:   level,
		loggers: make(map[string]slog.Logger, len(subsystems)),
	}
	for _, sub := range subsystems {
		lb.Logger(sub)
	}
	return lb, nil
}

// Logger returns the logger of a subsystem, creating it on first use.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if l, ok := lb.loggers[subsystem]; ok {
		return l
	}
	l := lb.backend.Logger(subsystem)
	l.SetLevel(lb.level)
	lb.loggers[subsystem] = l
	return l
}

// Close flushes and closes the log file.
func (lb *LogBackend) Close() error {
	return lb.rotator.Close()
}
