package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantKind       PayloadKind
		wantItems      int
		wantHasMessage bool
		wantErr        bool
	}{
		{
			name:           "object with message",
			input:          `{"message":"hello","timestamp":"2024-01-01T00:00:00Z"}`,
			wantKind:       PayloadObject,
			wantItems:      1,
			wantHasMessage: true,
		},
		{
			name:      "object without message",
			input:     `{"status":"running"}`,
			wantKind:  PayloadObject,
			wantItems: 1,
		},
		{
			name:           "array where every item has a message",
			input:          `[{"message":"a"},{"message":"b"}]`,
			wantKind:       PayloadArray,
			wantItems:      2,
			wantHasMessage: true,
		},
		{
			name:      "array with an item missing its message",
			input:     `[{"message":"a"},{"other":1}]`,
			wantKind:  PayloadArray,
			wantItems: 2,
		},
		{
			name:      "array with non-object elements",
			input:     `[{"message":"a"}, 3, "x"]`,
			wantKind:  PayloadArray,
			wantItems: 1,
		},
		{
			name:     "scalar",
			input:    `42`,
			wantKind: PayloadOther,
		},
		{
			name:    "truncated object",
			input:   `{"message":"a"`,
			wantErr: true,
		},
		{
			name:    "two concatenated objects",
			input:   `{"a":1}{"b":2}`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Len(t, p.Items(), tt.wantItems)
			assert.Equal(t, tt.wantHasMessage, p.HasMessage())
		})
	}
}

func TestMessage_PreservesUnknownFields(t *testing.T) {
	input := `{"message":"hi","timestamp":"t0","level":"info","count":3}`

	var m Message
	require.NoError(t, json.Unmarshal([]byte(input), &m))
	assert.Equal(t, "hi", m.Message)
	assert.Equal(t, "t0", m.Timestamp)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestMessage_NonStringMessageIsIgnored(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"message":12}`), &m))
	assert.False(t, m.HasMessage())
	assert.Contains(t, m.Fields, MessageField)
}

func TestMessage_LogLine(t *testing.T) {
	assert.Equal(t, "t0: hello", Message{Message: "hello", Timestamp: "t0"}.LogLine())
	assert.Equal(t, "hello", Message{Message: "hello"}.LogLine())
}

func TestParseTestResult(t *testing.T) {
	r, ok := ParseTestResult(" PASS ")
	require.True(t, ok)
	assert.Equal(t, TestResultPass, r)

	_, ok = ParseTestResult("skip")
	assert.False(t, ok)

	assert.Equal(t, TestResultFail, TestResultNone.OrFail())
	assert.Equal(t, TestResultWarning, TestResultWarning.OrFail())
	assert.Equal(t, "none", TestResultNone.String())
}
