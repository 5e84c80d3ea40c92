package javascript_test

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/scripthost/executor"
	"github.com/caffeineduck/scripthost/language/javascript"
)

func newThread(t *testing.T, buf *bytes.Buffer) *executor.Thread {
	t.Helper()
	te, err := executor.NewTestEngine("/app",
		executor.WithLanguage(javascript.New()),
		executor.WithLogger(log.New(buf)),
	)
	require.NoError(t, err)
	th := te.NewThread()
	t.Cleanup(func() {
		_ = th.Shutdown()
		_ = te.Close()
	})
	return th
}

func TestJavaScriptName(t *testing.T) {
	assert.Equal(t, "javascript", javascript.New().Name())
}

func TestPreludeDefinesConsole(t *testing.T) {
	src := javascript.New().Prelude()
	for _, fn := range []string{"log", "info", "debug", "warn", "error"} {
		assert.Contains(t, src, fn+":")
	}
}

func TestConsoleLogWritesHostLog(t *testing.T) {
	var buf bytes.Buffer
	th := newThread(t, &buf)

	res, err := th.Run([]byte(`console.log("hello", 1 + 1); 7`))
	require.NoError(t, err)
	require.Nil(t, res.Diagnostic)
	assert.EqualValues(t, 7, res.Value)
	assert.Contains(t, buf.String(), "hello 2")
}

func TestConsoleLevelsArePrefixed(t *testing.T) {
	var buf bytes.Buffer
	th := newThread(t, &buf)

	res, err := th.Run([]byte(`console.warn("careful"); console.error("bad")`))
	require.NoError(t, err)
	require.Nil(t, res.Diagnostic)
	assert.Contains(t, buf.String(), "[warn] careful")
	assert.Contains(t, buf.String(), "[error] bad")
}

func TestConsoleAvailableInModules(t *testing.T) {
	var buf bytes.Buffer
	te, err := executor.NewTestEngine("/app", executor.WithLogger(log.New(&buf)))
	require.NoError(t, err)
	require.NoError(t, te.WriteFile("/app/greet.js", `console.log("from module"); module.exports = 3;`))
	th := te.NewThread()
	defer func() {
		_ = th.Shutdown()
		_ = te.Close()
	}()

	res, err := th.Run([]byte(`require("./greet")`))
	require.NoError(t, err)
	require.Nil(t, res.Diagnostic)
	assert.EqualValues(t, 3, res.Value)
	assert.Contains(t, buf.String(), "from module")
}

func TestPreludeDisabled(t *testing.T) {
	var buf bytes.Buffer
	te, err := executor.NewTestEngine("/app",
		executor.WithPrelude(""),
		executor.WithLogger(log.New(&buf)),
	)
	require.NoError(t, err)
	th := te.NewThread()
	defer func() {
		_ = th.Shutdown()
		_ = te.Close()
	}()

	res, err := th.Run([]byte(`typeof console`))
	require.NoError(t, err)
	assert.Equal(t, "undefined", res.Value)
}
