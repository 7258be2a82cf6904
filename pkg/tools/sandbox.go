package tools

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

type codeArgs struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// executeCode runs a snippet inside an isolated Lua interpreter. Only
// a safe subset of the standard libraries is opened, the interpreter
// has no access to the host process, and a wall-clock deadline tears
// it down. The snippet is expected to produce a value via "return".
func executeCode(ctx context.Context, rawArgs string, timeout time.Duration) Result {
	var args codeArgs
	if err := json.UnmarshalFromString(rawArgs, &args); err != nil {
		return Result{Err: fmt.Sprintf("invalid arguments: %v", err)}
	}
	if args.Language != "lua" {
		return Result{Err: fmt.Sprintf("unsupported language: %q (only \"lua\" is supported)", args.Language)}
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// No io, os or package libraries inside the sandbox.
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return Result{Err: fmt.Sprintf("failed to initialize sandbox: %v", err)}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	L.SetContext(runCtx)

	if err := L.DoString(args.Code); err != nil {
		if runCtx.Err() != nil {
			return Result{Err: fmt.Sprintf("execution timed out after %s", timeout)}
		}
		return Result{Err: fmt.Sprintf("execution error: %v", err)}
	}

	if L.GetTop() == 0 {
		return Result{Output: "nil"}
	}

	value := luaToGo(L.Get(-1))
	out, err := json.MarshalToString(value)
	if err != nil {
		return Result{Err: fmt.Sprintf("failed to encode return value: %v", err)}
	}
	return Result{Output: out}
}

// luaToGo converts a Lua value into a JSON-encodable Go value. Tables
// with contiguous integer keys become slices, everything else a map.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, luaToGo(val.RawGetInt(i)))
			}
			return arr
		}
		obj := make(map[string]any)
		val.ForEach(func(k, item lua.LValue) {
			obj[fmt.Sprintf("%v", luaToGo(k))] = luaToGo(item)
		})
		return obj
	default:
		return nil
	}
}
