package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCode(t *testing.T) {
	run := func(code string) Result {
		args, err := json.MarshalToString(codeArgs{Language: "lua", Code: code})
		require.NoError(t, err)
		return executeCode(context.Background(), args, 2*time.Second)
	}

	t.Run("number result", func(t *testing.T) {
		res := run("return 2 + 3")
		require.False(t, res.Failed(), res.Err)
		assert.Equal(t, "5", res.Output)
	})

	t.Run("string result", func(t *testing.T) {
		res := run(`return string.upper("abc")`)
		require.False(t, res.Failed(), res.Err)
		assert.Equal(t, `"ABC"`, res.Output)
	})

	t.Run("array table result", func(t *testing.T) {
		res := run("local t = {} for i = 1, 3 do t[i] = i * 10 end return t")
		require.False(t, res.Failed(), res.Err)
		assert.Equal(t, "[10,20,30]", res.Output)
	})

	t.Run("map table result", func(t *testing.T) {
		res := run(`return {answer = 42}`)
		require.False(t, res.Failed(), res.Err)
		assert.JSONEq(t, `{"answer":42}`, res.Output)
	})

	t.Run("no return value", func(t *testing.T) {
		res := run("local x = 1")
		require.False(t, res.Failed(), res.Err)
		assert.Equal(t, "nil", res.Output)
	})

	t.Run("runtime error", func(t *testing.T) {
		res := run("error('kaboom')")
		assert.True(t, res.Failed())
		assert.Contains(t, res.Err, "kaboom")
	})

	t.Run("io library is not available", func(t *testing.T) {
		res := run(`return io.open("/etc/passwd")`)
		assert.True(t, res.Failed())
	})

	t.Run("unsupported language", func(t *testing.T) {
		res := executeCode(context.Background(), `{"language":"python","code":"print(1)"}`, time.Second)
		assert.True(t, res.Failed())
		assert.Contains(t, res.Err, "unsupported language")
	})

	t.Run("infinite loop hits the deadline", func(t *testing.T) {
		args, err := json.MarshalToString(codeArgs{Language: "lua", Code: "while true do end"})
		require.NoError(t, err)

		start := time.Now()
		res := executeCode(context.Background(), args, 100*time.Millisecond)
		assert.True(t, res.Failed())
		assert.Contains(t, res.Err, "timed out")
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
