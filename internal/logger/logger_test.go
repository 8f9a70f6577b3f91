package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "dealos-test"})

	ctx := l.WithContext(context.Background())
	ctx = SetJobID(ctx, 42)
	ctx = WithField(ctx, FieldRequestID, "req-1")

	With(Fields{FieldDurationMs: int64(7)}).Info(ctx, "job %s", "queued")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "job queued", line["message"])
	assert.Equal(t, "dealos-test", line["service"])
	assert.Equal(t, "req-1", line[FieldRequestID])
	assert.EqualValues(t, 42, line[FieldJobID])
	assert.EqualValues(t, 7, line[FieldDurationMs])
	assert.Equal(t, "req-1", GetFieldString(ctx, FieldRequestID))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
}

func TestEntryMetricFields(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		want  map[string]interface{}
	}{
		{
			name:  "duration",
			entry: With(Fields{FieldStatus: "done"}).WithDuration(250),
			want:  map[string]interface{}{FieldStatus: "done", FieldDurationMs: 250},
		},
		{
			name:  "count",
			entry: With(nil).WithCount(3),
			want:  map[string]interface{}{FieldCount: 3},
		},
		{
			name:  "later value wins",
			entry: With(Fields{FieldCount: 1}).WithCount(9).WithDuration(5),
			want:  map[string]interface{}{FieldCount: 9, FieldDurationMs: 5},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "dealos-test"})
			ctx := SetComponent(l.WithContext(context.Background()), "worker")

			tc.entry.Info(ctx, "done")

			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, "worker", line[FieldComponent])
			for k, v := range tc.want {
				assert.EqualValues(t, v, line[k], k)
			}
		})
	}
}

func TestEntryWithDoesNotMutateParent(t *testing.T) {
	base := With(Fields{FieldCount: 1})
	_ = base.WithDuration(10)
	assert.Equal(t, Fields{FieldCount: 1}, base.fields)
}
