/*
Copyright 2026 The Shardgate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package viperutil binds typed configuration values to viper.
//
// A Value is declared once with Configure, bound to command line flags with
// BindFlags, and optionally backed by a config file loaded with LoadConfig.
// Lookup order is flag, environment variable, config file, then default.
package viperutil

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shardgate/shardgate/go/vt/vterrors"
)

// Registerable is the subset of a Value used by BindFlags. Go generics do
// not let a function take Value[T] for many different T's, hence this
// separate interface.
type Registerable interface {
	Key() string
	Flag(fs *pflag.FlagSet) (*pflag.Flag, error)
}

// Value is a typed configuration value.
type Value[T any] interface {
	Registerable
	Get() T
	Default() T
	Set(v T)
}

// Options configures a Value.
type Options[T any] struct {
	Aliases  []string
	FlagName string
	EnvVars  []string
	Default  T

	// GetFunc returns the viper getter for T. When nil, the getter is
	// derived from the type of Default.
	GetFunc func(v *viper.Viper) func(key string) T
}

// Registry owns the viper instance that values are read from.
type Registry struct {
	v *viper.Viper
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{v: viper.New()}
}

// Viper exposes the underlying viper instance.
func (r *Registry) Viper() *viper.Viper {
	return r.v
}

type value[T any] struct {
	r        *Registry
	key      string
	def      T
	flagName string
	get      func(key string) T
}

// ErrNoFlagDefined is returned when a Value has a FlagName set, but the given
// FlagSet does not define a flag with that name.
var ErrNoFlagDefined = vterrors.New(vterrors.InvalidArgument, "flag not defined")

// Configure declares a value under key and returns it.
func Configure[T any](r *Registry, key string, opts Options[T]) Value[T] {
	r.v.SetDefault(key, opts.Default)
	for _, alias := range opts.Aliases {
		r.v.RegisterAlias(alias, key)
	}
	if len(opts.EnvVars) > 0 {
		_ = r.v.BindEnv(append([]string{key}, opts.EnvVars...)...)
	}

	getFunc := opts.GetFunc
	if getFunc == nil {
		getFunc = GetFuncForType[T]()
	}
	return &value[T]{
		r:        r,
		key:      key,
		def:      opts.Default,
		flagName: opts.FlagName,
		get:      getFunc(r.v),
	}
}

func (val *value[T]) Key() string { return val.key }
func (val *value[T]) Default() T  { return val.def }
func (val *value[T]) Get() T      { return val.get(val.key) }
func (val *value[T]) Set(v T)     { val.r.v.Set(val.key, v) }

// Flag returns the flag bound to this value. It returns (nil, nil) when the
// value is not configured to correspond to a flag.
func (val *value[T]) Flag(fs *pflag.FlagSet) (*pflag.Flag, error) {
	if val.flagName == "" {
		return nil, nil
	}
	flag := fs.Lookup(val.flagName)
	if flag == nil {
		return nil, vterrors.Wrapf(ErrNoFlagDefined, "%s (for key %s)", val.flagName, val.key)
	}
	return flag, nil
}

// BindFlags binds each value to its flag in fs. It panics if a value names
// a flag that fs does not define.
func (r *Registry) BindFlags(fs *pflag.FlagSet, values ...Registerable) {
	for _, val := range values {
		flag, err := val.Flag(fs)
		switch {
		case err != nil:
			panic(fmt.Errorf("failed to load flag for %s: %w", val.Key(), err))
		case flag == nil:
			continue
		}
		_ = r.v.BindPFlag(val.Key(), flag)
	}
}

// LoadConfig reads the config file at path from fs. The format is derived
// from the file extension.
func (r *Registry) LoadConfig(fs afero.Fs, path string) error {
	if path == "" {
		return nil
	}
	r.v.SetFs(fs)
	r.v.SetConfigFile(path)
	if err := r.v.ReadInConfig(); err != nil {
		return vterrors.Wrapf(err, "failed to read config file %s", path)
	}
	return nil
}

// GetFuncForType returns the viper getter matching T.
func GetFuncForType[T any]() func(v *viper.Viper) func(key string) T {
	var zero T
	var f any
	switch any(zero).(type) {
	case string:
		f = func(v *viper.Viper) func(string) string { return v.GetString }
	case bool:
		f = func(v *viper.Viper) func(string) bool { return v.GetBool }
	case int:
		f = func(v *viper.Viper) func(string) int { return v.GetInt }
	case int64:
		f = func(v *viper.Viper) func(string) int64 { return v.GetInt64 }
	case float64:
		f = func(v *viper.Viper) func(string) float64 { return v.GetFloat64 }
	case time.Duration:
		f = func(v *viper.Viper) func(string) time.Duration { return v.GetDuration }
	case []string:
		f = func(v *viper.Viper) func(string) []string { return v.GetStringSlice }
	default:
		panic(fmt.Sprintf("unsupported type %T for viperutil value", zero))
	}
	return f.(func(v *viper.Viper) func(key string) T)
}
