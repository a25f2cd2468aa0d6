package script

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kode4food/ale"
	"github.com/kode4food/ale/core/bootstrap"
	"github.com/kode4food/ale/data"
	"github.com/kode4food/ale/env"
	"github.com/kode4food/ale/eval"
)

type (
	// AleEnv provides an Ale script execution environment with a compiled
	// procedure cache
	AleEnv struct {
		env     *env.Environment
		scripts sync.Map
	}

	// CompiledAle represents a compiled Ale procedure and its argument
	// order
	CompiledAle struct {
		proc     data.Procedure
		argNames []string
	}
)

const aleLambdaTemplate = "(lambda (%s) %s)"

var (
	ErrAleBadCompiledType = errors.New("expected compiled ale procedure")
	ErrAleNotProcedure    = errors.New("not a procedure")
	ErrAleCompile         = errors.New("script compile error")
	ErrAleCall            = errors.New("error calling procedure")
)

// NewAleEnv creates a new Ale script execution environment
func NewAleEnv() *AleEnv {
	e := env.NewEnvironment()
	bootstrap.Into(e)
	return &AleEnv{
		env: e,
	}
}

func (e *AleEnv) Language() string {
	return LangAle
}

// Compile wraps the source in a lambda over the argument names and
// evaluates it to a procedure, caching the result per (id, source)
func (e *AleEnv) Compile(
	id, source string, argNames []string,
) (Compiled, error) {
	key := cacheKey(id, source)

	if val, ok := e.scripts.Load(key); ok {
		return val.(*CompiledAle), nil
	}

	proc, err := e.compile(source, argNames)
	if err != nil {
		return nil, err
	}

	res := &CompiledAle{
		proc:     proc,
		argNames: argNames,
	}
	e.scripts.Store(key, res)
	return res, nil
}

// Execute runs a compiled Ale script with the provided inputs and returns
// the script's result value
func (e *AleEnv) Execute(c Compiled, inputs map[string]any) (any, error) {
	proc, ok := c.(*CompiledAle)
	if !ok {
		return nil, fmt.Errorf("%s, got %T", ErrAleBadCompiledType, c)
	}

	result, err := e.call(proc, inputs)
	if err != nil {
		return nil, err
	}
	return aleToJSON(result), nil
}

// EvaluatePredicate executes a compiled Ale predicate with the provided
// inputs and returns the boolean result
func (e *AleEnv) EvaluatePredicate(
	c Compiled, inputs map[string]any,
) (bool, error) {
	proc, ok := c.(*CompiledAle)
	if !ok {
		return false, fmt.Errorf("%s, got %T", ErrAleBadCompiledType, c)
	}

	result, err := e.call(proc, inputs)
	if err != nil {
		return false, err
	}
	return result != data.False, nil
}

func (e *AleEnv) compile(
	script string, argNames []string,
) (data.Procedure, error) {
	src := fmt.Sprintf(
		aleLambdaTemplate, strings.Join(argNames, " "), script,
	)

	return catchPanic(ErrAleCompile,
		func() (data.Procedure, error) {
			ns := e.env.GetAnonymous()
			res, err := eval.String(ns, data.String(src))
			if err != nil {
				return nil, err
			}

			proc, ok := res.(data.Procedure)
			if !ok {
				return nil, fmt.Errorf("%w, got: %T", ErrAleNotProcedure, res)
			}
			return proc, nil
		},
	)
}

func (e *AleEnv) call(
	proc *CompiledAle, inputs map[string]any,
) (ale.Value, error) {
	args := make(data.Vector, 0, len(proc.argNames))
	for _, name := range proc.argNames {
		args = append(args, getAleArg(inputs, name))
	}

	return catchPanic(ErrAleCall,
		func() (ale.Value, error) {
			return proc.proc.Call(args...), nil
		},
	)
}

func getAleArg(inputs map[string]any, argName string) ale.Value {
	value, ok := inputs[argName]
	if !ok {
		return data.Null
	}
	return jsonToAle(value)
}

func jsonToAle(value any) ale.Value {
	switch v := value.(type) {
	case string:
		return data.String(v)
	case bool:
		return data.Bool(v)
	case int:
		return data.Integer(v)
	case int64:
		return data.Integer(v)
	case float64:
		return data.Float(v)
	case []any:
		return jsonArrayToAle(v)
	case map[string]any:
		return jsonMapToAle(v)
	case nil:
		return data.Null
	default:
		return data.String(fmt.Sprintf("%v", v))
	}
}

func jsonArrayToAle(arr []any) data.Vector {
	vec := make(data.Vector, len(arr))
	for i, item := range arr {
		vec[i] = jsonToAle(item)
	}
	return vec
}

func jsonMapToAle(m map[string]any) *data.Object {
	obj := data.NewObject()
	for k, val := range m {
		pair := data.NewCons(data.Keyword(k), jsonToAle(val))
		obj = obj.Put(pair).(*data.Object)
	}
	return obj
}

func aleToJSON(value ale.Value) any {
	switch v := value.(type) {
	case data.Bool:
		return bool(v)
	case data.Keyword:
		return string(v)
	case data.Integer:
		return int(v)
	case data.Float:
		return float64(v)
	case data.Vector:
		return aleVectorToJSON(v)
	case *data.List:
		return aleListToJSON(v)
	case *data.Object:
		return aleObjectToJSON(v)
	default:
		return aleDefaultToJSON(value, v)
	}
}

func aleVectorToJSON(v data.Vector) []any {
	result := make([]any, len(v))
	for i, item := range v {
		result[i] = aleToJSON(item)
	}
	return result
}

func aleListToJSON(list *data.List) []any {
	var result []any
	for l := list; !l.IsEmpty(); {
		head, tail, ok := l.Split()
		if !ok {
			break
		}
		result = append(result, aleToJSON(head))
		l = tail.(*data.List)
	}
	return result
}

func aleObjectToJSON(obj *data.Object) map[string]any {
	result := map[string]any{}
	for _, pair := range obj.Pairs() {
		keyStr := fmt.Sprintf("%v", aleToJSON(pair.Car()))
		result[keyStr] = aleToJSON(pair.Cdr())
	}
	return result
}

func aleDefaultToJSON(value ale.Value, v any) any {
	if value == data.Null {
		return nil
	}
	return fmt.Sprintf("%v", v)
}
