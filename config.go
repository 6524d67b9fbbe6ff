package haycaf

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/SethEden/Hay-CAF/flags"
	"github.com/SethEden/Hay-CAF/sockets"
)

// Config holds the application configuration
type Config struct {
	Socket        sockets.Config
	ResultTimeout time.Duration // How long a run waits for the harness result
	RunInterval   time.Duration // Interval between test runs
	RunOnce       bool          // Indicates if the service should exit after one test run
	LogDir        string        // Directory for per-session message logs, empty to disable
	StripANSI     bool          // Strip escape sequences from console output
	HealthzAddr   string
	MetricsAddr   string // Empty when the metrics server is disabled
	Log           log.Logger
}

// Profile is the YAML socket profile loaded with --config. Zero values
// leave the flag value in place.
type Profile struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	Delimiter            string        `yaml:"delimiter"`
	ResultTag            string        `yaml:"resultTag"`
	ResultTimeout        time.Duration `yaml:"resultTimeout"`
	EndOfScriptCountdown time.Duration `yaml:"endOfScriptCountdown"`
	ServerEndedTimeout   time.Duration `yaml:"serverEndedTimeout"`
}

// LoadProfile reads a socket profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return &p, nil
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	socket := sockets.DefaultConfig()
	socket.Host = ctx.String(flags.Host.Name)
	socket.Port = ctx.Int(flags.Port.Name)
	socket.Delimiter = ctx.String(flags.Delimiter.Name)
	socket.ResultTag = ctx.String(flags.ResultTag.Name)
	socket.EndOfScriptCountdown = ctx.Duration(flags.EndOfScriptCountdown.Name)
	socket.ServerEndedTimeout = ctx.Duration(flags.ServerEndedTimeout.Name)
	socket.IdleTimeout = ctx.Duration(flags.IdleTimeout.Name)
	resultTimeout := ctx.Duration(flags.ResultTimeout.Name)

	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		profile, err := LoadProfile(path)
		if err != nil {
			return nil, err
		}
		applyProfile(ctx, profile, &socket, &resultTimeout)
		log.Info("Loaded socket profile", "path", path)
	}

	if err := validateSocket(socket); err != nil {
		return nil, err
	}
	if resultTimeout <= 0 {
		return nil, errors.New("result timeout must be positive")
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		var err error
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}
	var metricsAddr string
	if metricsCfg.Enabled {
		metricsAddr = net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort))
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	return &Config{
		Socket:        socket,
		ResultTimeout: resultTimeout,
		RunInterval:   runInterval,
		RunOnce:       runInterval == 0,
		LogDir:        logDir,
		StripANSI:     ctx.Bool(flags.StripANSI.Name),
		HealthzAddr:   ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:   metricsAddr,
		Log:           log,
	}, nil
}

// applyProfile copies profile values for every flag not set explicitly.
func applyProfile(ctx *cli.Context, p *Profile, socket *sockets.Config, resultTimeout *time.Duration) {
	if p.Host != "" && !ctx.IsSet(flags.Host.Name) {
		socket.Host = p.Host
	}
	if p.Port != 0 && !ctx.IsSet(flags.Port.Name) {
		socket.Port = p.Port
	}
	if p.Delimiter != "" && !ctx.IsSet(flags.Delimiter.Name) {
		socket.Delimiter = p.Delimiter
	}
	if p.ResultTag != "" && !ctx.IsSet(flags.ResultTag.Name) {
		socket.ResultTag = p.ResultTag
	}
	if p.ResultTimeout != 0 && !ctx.IsSet(flags.ResultTimeout.Name) {
		*resultTimeout = p.ResultTimeout
	}
	if p.EndOfScriptCountdown != 0 && !ctx.IsSet(flags.EndOfScriptCountdown.Name) {
		socket.EndOfScriptCountdown = p.EndOfScriptCountdown
	}
	if p.ServerEndedTimeout != 0 && !ctx.IsSet(flags.ServerEndedTimeout.Name) {
		socket.ServerEndedTimeout = p.ServerEndedTimeout
	}
}

func validateSocket(c sockets.Config) error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Delimiter == "" {
		return errors.New("delimiter cannot be empty")
	}
	if c.ResultTag == "" {
		return errors.New("result tag cannot be empty")
	}
	if c.EndOfScriptCountdown <= 0 {
		return errors.New("end of script countdown must be positive")
	}
	if c.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}
	if c.ServerEndedTimeout <= 0 {
		return errors.New("server ended timeout must be positive")
	}
	return nil
}
