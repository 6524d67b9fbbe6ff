package flags

import (
	"fmt"
	"net"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/SethEden/Hay-CAF/classifier"
	"github.com/SethEden/Hay-CAF/framing"
	"github.com/SethEden/Hay-CAF/sockets"
)

const EnvVarPrefix = "HAY_CAF"

const DefaultResultTimeout = 10 * time.Minute

var (
	Host = &cli.StringFlag{
		Name:    "host",
		Value:   sockets.DefaultHost,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HOST"),
		Usage:   "Address the result socket listens on",
	}
	Port = &cli.IntFlag{
		Name:    "port",
		Value:   sockets.DefaultPort,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PORT"),
		Usage:   "Port the result socket listens on",
	}
	Delimiter = &cli.StringFlag{
		Name:    "delimiter",
		Value:   framing.DefaultDelimiter,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DELIMITER"),
		Usage:   "Delimiter terminating each JSON payload on the wire",
	}
	ResultTag = &cli.StringFlag{
		Name:    "result-tag",
		Value:   classifier.DefaultTag,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESULT_TAG"),
		Usage:   "Log tag identifying test result lines",
	}
	ResultTimeout = &cli.DurationFlag{
		Name:    "result-timeout",
		Value:   DefaultResultTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESULT_TIMEOUT"),
		Usage:   "How long to wait for the harness to report a test result",
	}
	EndOfScriptCountdown = &cli.DurationFlag{
		Name:    "end-of-script-countdown",
		Value:   sockets.DefaultEndOfScriptCountdown,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "END_OF_SCRIPT_COUNTDOWN"),
		Usage:   "Delay after a result is retrieved before the server closes itself",
	}
	ServerEndedTimeout = &cli.DurationFlag{
		Name:    "server-ended-timeout",
		Value:   sockets.DefaultServerEndedTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVER_ENDED_TIMEOUT"),
		Usage:   "How long to wait for the harness to disconnect after its result was retrieved",
	}
	IdleTimeout = &cli.DurationFlag{
		Name:    "idle-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "IDLE_TIMEOUT"),
		Usage:   "Drop a harness connection that sends nothing for this long. 0 disables.",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOG_DIR"),
		Usage:   "Directory for per-session message logs. Disabled when empty.",
	}
	StripANSI = &cli.BoolFlag{
		Name:    "strip-ansi",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STRIP_ANSI"),
		Usage:   "Strip terminal escape sequences from echoed harness output",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a YAML socket profile (eg. 'hay-caf.yaml'). Flags set explicitly take precedence.",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   net.JoinHostPort("0.0.0.0", "8080"),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the healthz server",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Host,
	Port,
	Delimiter,
	ResultTag,
	ResultTimeout,
	EndOfScriptCountdown,
	ServerEndedTimeout,
	IdleTimeout,
	RunInterval,
	LogDir,
	StripANSI,
	ConfigFile,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
