package config

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIdContext(t *testing.T) {

	var TestCases = []struct {
		description string
		value       string
	}{
		{
			description: "test set and get id",
			value:       "abc-123456-123456",
		},
	}

	for _, tc := range TestCases {

		ctx := SetContextCorrelationId(context.Background(), tc.value)
		result := GetContextCorrelationId(ctx)

		if !strings.Contains(result, tc.value) {
			t.Error(tc.description)
		}
	}
}

func TestAppendToCid(t *testing.T) {

	ctx := SetContextCorrelationId(context.Background(), "testId")
	if !strings.Contains(GetContextCorrelationId(ctx), "testId") {
		t.Error("initial cid")
	}

	ctx = AppendToContextCorrelationId(ctx, "someText")
	if !strings.Contains(GetContextCorrelationId(ctx), "testId-someText") {
		t.Error("appended cid")
	}
}

func TestLogCollection(t *testing.T) {
	ctx := SetContextCorrelationId(context.Background(), "collect")
	assert.Nil(t, CollectedLogs(ctx))

	ctx = EnableLogCollection(ctx)

	LogInfo(ctx, "first")
	LogWarn(ctx, "second")
	LogInfo(context.Background(), "not collected")

	logs := CollectedLogs(ctx)
	require.Len(t, logs, 2)
	assert.Equal(t, "first", logs[0].Message)
	assert.Equal(t, "info", logs[0].Severity)
	assert.Equal(t, "warning", logs[1].Severity)
	assert.Contains(t, logs[1].CID, "collect")
}
