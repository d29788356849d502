package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultAndProductionConfig(t *testing.T) {
	dev := DefaultConfig()
	assert.Equal(t, "console", dev.Format)
	assert.Equal(t, "debug", dev.Level)

	prod := ProductionConfig()
	assert.Equal(t, "json", prod.Format)
	assert.Equal(t, "info", prod.Level)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"nonsense", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sgi.log")

	log, err := New(&Config{Level: "info", Format: "json", Output: path, ServiceName: "sgi"})
	require.NoError(t, err)

	log.Info("cliente creado", zap.Int64("cliente_id", 7))
	log.Debug("not written")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"msg":"cliente creado"`)
	assert.Contains(t, content, `"cliente_id":7`)
	assert.Contains(t, content, `"service":"sgi"`)
	assert.NotContains(t, content, "not written")
}

func TestNew_ExtraCoresRespectLevel(t *testing.T) {
	extra, recorded := observer.New(zapcore.DebugLevel)

	log, err := New(&Config{Level: "warn", Format: "json", Output: "stderr"}, extra)
	require.NoError(t, err)

	log.Info("ignored")
	log.Warn("kept")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}

func TestCreateWriter_FallsBackToStdout(t *testing.T) {
	w := createWriter(filepath.Join(t.TempDir(), "missing", "dir", "out.log"))
	assert.NotNil(t, w)
	assert.Equal(t, zapcore.AddSync(os.Stdout), w)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		log, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, _ := WithRequestID(t.Context(), base, "req-1")
	ctx, _ = WithUserID(ctx, FromContext(ctx), "42")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "42", GetUserID(ctx))
	assert.Empty(t, GetTraceID(ctx))

	L(ctx).Info("hola")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "42", fields["user_id"])
}

func TestFromContext_NoLogger(t *testing.T) {
	l := FromContext(t.Context())
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("noop") })
	assert.Empty(t, GetRequestID(t.Context()))
	assert.Empty(t, GetUserID(t.Context()))
}
