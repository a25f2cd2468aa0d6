package script_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/paisley/pkg/script"
)

func TestAleExecute(t *testing.T) {
	env := script.NewAleEnv()

	compiled, err := env.Compile("add", "(+ x y)", []string{"x", "y"})
	require.NoError(t, err)

	result, err := env.Execute(compiled, map[string]any{"x": 2, "y": 3})
	require.NoError(t, err)
	assert.Equal(t, 5, result)
}

func TestAleExecuteVector(t *testing.T) {
	env := script.NewAleEnv()

	compiled, err := env.Compile("pair", "[x x]", []string{"x"})
	require.NoError(t, err)

	result, err := env.Execute(compiled, map[string]any{"x": "hi"})
	require.NoError(t, err)
	assert.Equal(t, []any{"hi", "hi"}, result)
}

func TestAlePredicate(t *testing.T) {
	env := script.NewAleEnv()

	compiled, err := env.Compile(
		"threshold", "(> value 10)", []string{"value"},
	)
	require.NoError(t, err)

	ok, err := env.EvaluatePredicate(compiled, map[string]any{"value": 15})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.EvaluatePredicate(compiled, map[string]any{"value": 5})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAleCompileError(t *testing.T) {
	env := script.NewAleEnv()
	_, err := env.Compile("broken", "(((", nil)
	assert.Error(t, err)
}

func TestAleNotProcedure(t *testing.T) {
	env := script.NewLuaEnv()
	compiled, err := env.Compile("lua-script", "return 1", nil)
	require.NoError(t, err)

	aleEnv := script.NewAleEnv()
	_, err = aleEnv.Execute(compiled, nil)
	assert.Error(t, err)
}

func TestAleCompileCaching(t *testing.T) {
	env := script.NewAleEnv()

	first, err := env.Compile("cached", "(+ 1 2)", nil)
	require.NoError(t, err)
	second, err := env.Compile("cached", "(+ 1 2)", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
