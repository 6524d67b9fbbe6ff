package flags

import (
	"testing"
	"time"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
		})
	}
}

func TestSocketFlagDefaults(t *testing.T) {
	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "127.0.0.1", ctx.String(Host.Name))
			assert.Equal(t, 3000, ctx.Int(Port.Name))
			assert.Equal(t, "##END##", ctx.String(Delimiter.Name))
			assert.Equal(t, "TestResultsLog", ctx.String(ResultTag.Name))
			assert.Equal(t, 20*time.Second, ctx.Duration(EndOfScriptCountdown.Name))
			assert.Equal(t, 5*time.Second, ctx.Duration(ServerEndedTimeout.Name))
			assert.Equal(t, time.Duration(0), ctx.Duration(RunInterval.Name))
			assert.True(t, ctx.Bool(StripANSI.Name))
			return CheckRequired(ctx)
		},
	}
	require.NoError(t, app.Run([]string{"hay-caf"}))
}

func TestSocketFlagsFromEnv(t *testing.T) {
	t.Setenv("HAY_CAF_PORT", "4100")
	t.Setenv("HAY_CAF_RESULT_TAG", "Results")

	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, 4100, ctx.Int(Port.Name))
			assert.Equal(t, "Results", ctx.String(ResultTag.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"hay-caf"}))
}
