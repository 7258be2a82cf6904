package tools

import (
	"fmt"
	"strconv"
)

type mathArgs struct {
	A *float64 `json:"a"`
	B *float64 `json:"b"`
}

// executeMath dispatches the four arithmetic operations. Operands are
// required numbers; division rejects a zero divisor.
func executeMath(op string, rawArgs string) Result {
	var args mathArgs
	if err := json.UnmarshalFromString(rawArgs, &args); err != nil {
		return Result{Err: fmt.Sprintf("invalid arguments: %v", err)}
	}
	if args.A == nil || args.B == nil {
		return Result{Err: "both operands 'a' and 'b' must be numbers"}
	}

	a, b := *args.A, *args.B
	var v float64
	switch op {
	case "addition":
		v = a + b
	case "subtraction":
		v = a - b
	case "multiplication":
		v = a * b
	case "division":
		if b == 0 {
			return Result{Err: "division by zero"}
		}
		v = a / b
	default:
		return Result{Err: fmt.Sprintf("unknown math operation: %s", op)}
	}

	// Whole results print without a trailing ".0" (2+3 yields "5").
	return Result{Output: strconv.FormatFloat(v, 'f', -1, 64)}
}
