package reqcontext

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRequestIDFrom(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		keep     bool
	}{
		{"uuid", "a1b2c3d4-e5f6-7890-abcd-ef1234567890", true},
		{"underscores", "cli_search_1", true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 129), false},
		{"header injection", "id\r\nX-Evil: 1", false},
		{"dot", "file.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestIDFrom(tt.provided)
			if tt.keep {
				assert.Equal(t, tt.provided, got)
				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}

func TestLogger(t *testing.T) {
	fallback := zap.NewExample()
	assert.Same(t, fallback, Logger(context.Background(), fallback))
	assert.NotNil(t, Logger(context.Background(), nil))

	scoped := zap.NewNop().With(zap.String("request_id", "abc"))
	assert.Same(t, scoped, Logger(WithLogger(context.Background(), scoped), fallback))
}
