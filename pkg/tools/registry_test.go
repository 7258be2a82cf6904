package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadflow/pkg/config"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"weather_api", "weather_api"},
		{"Weather API v2", "Weather_API_v2"},
		{"my.cool.api!", "my_cool_api"},
		{"__padded__", "padded"},
		{"a---b", "a---b"},
		{"!!!", "custom_api"},
		{"", "custom_api"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "input %q", tt.in)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	def, ok := r.Get("addition")
	require.True(t, ok)
	assert.Equal(t, KindMath, def.Kind)

	def, ok = r.GetByName("most_used_word")
	require.True(t, ok)
	assert.Equal(t, "most_used_word", def.ID)

	_, ok = r.Get(PlannerToolID)
	assert.True(t, ok)

	custom := NewAPITool("Exchange Rates!", "Fetch fx rates.", APIConfig{URL: "http://x", Method: "GET"}, nil)
	assert.Equal(t, "Exchange_Rates", custom.Name)
	assert.NotEmpty(t, custom.ID)
	r.Register(custom)

	got, ok := r.Get(custom.ID)
	require.True(t, ok)
	assert.Equal(t, KindAPI, got.Kind)

	r.Unregister(custom.ID)
	_, ok = r.Get(custom.ID)
	assert.False(t, ok)

	assert.Len(t, r.GetAll(), len(Builtins()))
}

func TestExecutorDispatch(t *testing.T) {
	exec := NewExecutor(config.DefaultSystemConfig())

	res := exec.Execute(context.Background(), &Definition{ID: "addition", Name: "addition", Kind: KindMath}, `{"a":2,"b":3}`)
	require.False(t, res.Failed(), res.Err)
	assert.Equal(t, "5", res.Output)

	res = exec.Execute(context.Background(), &Definition{ID: PlannerToolID, Name: PlannerToolID, Kind: KindPlanner}, `{}`)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Err, "planner tool cannot be executed directly")

	res = exec.Execute(context.Background(), &Definition{ID: "x", Name: "x", Kind: Kind("bogus")}, `{}`)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Err, "unknown tool kind")
}
