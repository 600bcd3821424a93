package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LoggerSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) TestNewLoggerTextFormat() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "text", &buf)
	logger.Info("hello")
	require.Contains(s.T(), buf.String(), "hello")
}

func (s *LoggerSuite) TestNewLoggerJSONFormat() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "json", &buf)
	logger.Info("hello")
	require.Contains(s.T(), buf.String(), `"msg":"hello"`)
}

func (s *LoggerSuite) TestNewLoggerJSONFormatCaseInsensitive() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "JSON", &buf)
	logger.Info("test")
	require.Contains(s.T(), buf.String(), `"msg":"test"`)
}

func (s *LoggerSuite) TestNewLoggerDebugLevel() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", "text", &buf)
	logger.Debug("debug-msg")
	require.Contains(s.T(), buf.String(), "debug-msg")
}

func (s *LoggerSuite) TestNewLoggerWarnLevel() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", "text", &buf)
	logger.Info("info-msg")
	require.NotContains(s.T(), buf.String(), "info-msg")
	logger.Warn("warn-msg")
	require.Contains(s.T(), buf.String(), "warn-msg")
}

func (s *LoggerSuite) TestNewLoggerErrorLevel() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("error", "text", &buf)
	logger.Warn("warn-msg")
	require.NotContains(s.T(), buf.String(), "warn-msg")
	logger.Error("error-msg")
	require.Contains(s.T(), buf.String(), "error-msg")
}

func (s *LoggerSuite) TestNewLoggerDefaultLevel() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("unknown", "text", &buf)
	logger.Debug("debug-msg")
	require.NotContains(s.T(), buf.String(), "debug-msg")
	logger.Info("info-msg")
	require.Contains(s.T(), buf.String(), "info-msg")
}

func (s *LoggerSuite) TestNewLoggerUsesStderr() {
	logger := NewLogger("info", "text")
	require.NotNil(s.T(), logger)
}

func (s *LoggerSuite) TestParseLevel() {
	require.Equal(s.T(), slog.LevelDebug, parseLevel("debug"))
	require.Equal(s.T(), slog.LevelInfo, parseLevel("info"))
	require.Equal(s.T(), slog.LevelWarn, parseLevel("warn"))
	require.Equal(s.T(), slog.LevelError, parseLevel("error"))
	require.Equal(s.T(), slog.LevelInfo, parseLevel(""))
	require.Equal(s.T(), slog.LevelInfo, parseLevel("invalid"))
}

func (s *LoggerSuite) TestParseLevelCaseInsensitive() {
	require.Equal(s.T(), slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(s.T(), slog.LevelDebug, parseLevel("Debug"))
}

func (s *LoggerSuite) TestLogOutputContainsLevel() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", "text", &buf)
	logger.Debug("test")
	output := buf.String()
	require.True(s.T(), strings.Contains(output, "DEBUG") || strings.Contains(output, "level=DEBUG"))
}

func (s *LoggerSuite) TestStatusRecorderDefaultsToOK() {
	rec := NewStatusRecorder(httptest.NewRecorder())
	require.Equal(s.T(), http.StatusOK, rec.Status)
	rec.WriteHeader(http.StatusTeapot)
	require.Equal(s.T(), http.StatusTeapot, rec.Status)
	require.NotNil(s.T(), rec.Unwrap())
}

func (s *LoggerSuite) TestMiddlewareLogsRequest() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "json", &buf)
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/subjects/a/thread/3", nil))

	require.Equal(s.T(), http.StatusNotFound, rec.Code)
	out := buf.String()
	require.Contains(s.T(), out, `"msg":"http request"`)
	require.Contains(s.T(), out, `"method":"DELETE"`)
	require.Contains(s.T(), out, `"status":404`)
	require.Contains(s.T(), out, `"level":"INFO"`)
}

func (s *LoggerSuite) TestMiddlewareWarnsOnServerError() {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", "json", &buf)
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Contains(s.T(), buf.String(), `"level":"WARN"`)
}
