package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SethEden/Hay-CAF/types"
)

func TestContainsTestResult(t *testing.T) {
	c := New("")

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "pass line", text: "TestResultsLog Test_1 PASS", want: true},
		{name: "lower case warning", text: "[TestResultsLog] Test_login warning", want: true},
		{name: "fail inside a word", text: "TestResultsLog Test_2 FAILED", want: true},
		{name: "ansi coloured", text: "TestResultsLog Test_3 \x1b[32mPASS\x1b[0m", want: true},
		{name: "missing tag", text: "Test_1 PASS", want: false},
		{name: "missing Test_ prefix", text: "TestResultsLog suite PASS", want: false},
		{name: "Test_ is case sensitive", text: "TestResultsLog test_1 PASS", want: false},
		{name: "no marker", text: "TestResultsLog Test_1 running", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ContainsTestResult(tt.text))
		})
	}
}

func TestExtractResult(t *testing.T) {
	c := New("")

	tests := []struct {
		text string
		want types.TestResult
	}{
		{text: "Test_1 PASS", want: types.TestResultPass},
		{text: "Test_1 Warning", want: types.TestResultWarning},
		{text: "Test_1 fail", want: types.TestResultFail},
		// pass wins over the others regardless of position
		{text: "Test_1 fail then pass", want: types.TestResultPass},
		{text: "Test_1 warning and fail", want: types.TestResultWarning},
		{text: "Test_1 unknown", want: types.TestResultFail},
		{text: "", want: types.TestResultFail},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ExtractResult(tt.text))
		})
	}
}

func TestClassifyPayload_FirstMatchWins(t *testing.T) {
	c := New("")
	p, err := types.ParsePayload([]byte(`[
		{"message":"no marker"},
		{"message":"2024 TestResultsLog Test_1 PASS"},
		{"message":"TestResultsLog Test_1 FAIL"}
	]`))
	require.NoError(t, err)

	result, ok := c.ClassifyPayload(p)
	require.True(t, ok)
	assert.Equal(t, types.TestResultPass, result)

	// idempotent
	again, ok := c.ClassifyPayload(p)
	require.True(t, ok)
	assert.Equal(t, result, again)
}

func TestClassifyPayload_Object(t *testing.T) {
	c := New("")
	p, err := types.ParsePayload([]byte(`{"message":"TestResultsLog Test_9 WARNING"}`))
	require.NoError(t, err)

	result, ok := c.ClassifyPayload(p)
	require.True(t, ok)
	assert.Equal(t, types.TestResultWarning, result)
}

func TestClassifyPayload_NoResult(t *testing.T) {
	c := New("")
	p, err := types.ParsePayload([]byte(`[{"message":"hello"},{"other":"TestResultsLog Test_1 PASS"}]`))
	require.NoError(t, err)

	result, ok := c.ClassifyPayload(p)
	assert.False(t, ok)
	assert.Equal(t, types.TestResultNone, result)
}

func TestCustomTag(t *testing.T) {
	c := New("RESULT>")
	assert.Equal(t, "RESULT>", c.Tag())
	assert.True(t, c.ContainsTestResult("RESULT> Test_1 pass"))
	assert.False(t, c.ContainsTestResult("TestResultsLog Test_1 pass"))
}
