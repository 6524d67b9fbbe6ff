package haycaf

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/SethEden/Hay-CAF/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(result *RunResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    out,
	}
}

// FormatResults renders the run as a table.
func (f *ConsoleResultFormatter) FormatResults(result *RunResult) error {
	if result == nil {
		return fmt.Errorf("no result to format")
	}
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"Run", "Session", "Duration", "Harness Ended", "Result", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Run", WidthMax: 36},
		{Name: "Session", WidthMax: 36},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}
	t.AppendRow(table.Row{
		result.RunID,
		result.SessionID,
		formatDuration(result.Duration),
		yesNo(result.HarnessEnded),
		getResultString(result.Result),
		errMsg,
	})

	switch {
	case result.Err != nil:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case result.Result == types.TestResultPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case result.Result == types.TestResultWarning:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.Render()
	return nil
}

func getResultString(result types.TestResult) string {
	switch result {
	case types.TestResultPass:
		return "✓ pass"
	case types.TestResultWarning:
		return "! warning"
	case types.TestResultNone:
		return "- none"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
