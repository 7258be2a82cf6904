package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecuteMath(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		args    string
		want    string
		wantErr string
	}{
		{name: "addition", op: "addition", args: `{"a":2,"b":3}`, want: "5"},
		{name: "addition fractional", op: "addition", args: `{"a":0.1,"b":0.2}`, want: "0.30000000000000004"},
		{name: "subtraction", op: "subtraction", args: `{"a":10,"b":4}`, want: "6"},
		{name: "subtraction negative result", op: "subtraction", args: `{"a":3,"b":7}`, want: "-4"},
		{name: "multiplication", op: "multiplication", args: `{"a":2.5,"b":4}`, want: "10"},
		{name: "division", op: "division", args: `{"a":7,"b":2}`, want: "3.5"},
		{name: "division whole result", op: "division", args: `{"a":10,"b":2}`, want: "5"},
		{name: "division by zero", op: "division", args: `{"a":1,"b":0}`, wantErr: "division by zero"},
		{name: "missing operand", op: "addition", args: `{"a":1}`, wantErr: "both operands 'a' and 'b' must be numbers"},
		{name: "non numeric operand", op: "addition", args: `{"a":"x","b":1}`, wantErr: "invalid arguments"},
		{name: "unknown operation", op: "modulo", args: `{"a":1,"b":2}`, wantErr: "unknown math operation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := executeMath(tt.op, tt.args)
			if tt.wantErr != "" {
				assert.True(t, res.Failed())
				assert.Contains(t, res.Err, tt.wantErr)
				return
			}
			assert.False(t, res.Failed(), "unexpected error: %s", res.Err)
			assert.Equal(t, tt.want, res.Output)
		})
	}
}
