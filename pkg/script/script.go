// Package script provides sandboxed script execution environments used for
// scripted data-transform steps and script-backed goal predicates
package script

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

type (
	// Compiled is an opaque compiled script handle owned by its Env
	Compiled any

	// Env is a script execution environment for one language. Compiled
	// scripts are cached per (id, source) so repeated executions skip
	// compilation
	Env interface {
		Language() string
		Compile(id, source string, argNames []string) (Compiled, error)
		Execute(c Compiled, inputs map[string]any) (any, error)
		EvaluatePredicate(c Compiled, inputs map[string]any) (bool, error)
	}

	// Registry maps language names to script environments
	Registry struct {
		envs map[string]Env
	}
)

const (
	LangLua = "lua"
	LangAle = "ale"
)

var ErrUnknownLanguage = errors.New("unknown script language")

// NewRegistry creates a registry with the Lua and Ale environments
// registered
func NewRegistry() *Registry {
	res := &Registry{
		envs: map[string]Env{},
	}
	res.Register(NewLuaEnv())
	res.Register(NewAleEnv())
	return res
}

// Register adds an environment under its language name
func (r *Registry) Register(env Env) {
	r.envs[env.Language()] = env
}

// Get resolves a language name to its environment
func (r *Registry) Get(language string) (Env, error) {
	env, ok := r.envs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}
	return env, nil
}

// cacheKey derives a compiled-script cache key from the owning id and a
// hash of the source
func cacheKey(id, source string) string {
	hash := sha256.Sum256([]byte(source))
	return fmt.Sprintf("%s:%s", id, hex.EncodeToString(hash[:8]))
}

func catchPanic[T any](baseErr error, fn func() (T, error)) (res T, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(error)
		if ok {
			err = e
			return
		}
		err = fmt.Errorf("%w: %v", baseErr, r)
	}()
	return fn()
}
