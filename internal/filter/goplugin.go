package filter

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
)

// goPluginEntry is the function a Go filter file must declare:
//
//	func Filters() map[string]func(text string, config map[string]interface{}) string
//
// The returned functions may also return (string, error).
const goPluginEntry = "Filters"

// loadGoPlugin interprets one Go source file and returns its filters.
func loadGoPlugin(path string, tier Tier) ([]Registration, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read plugin").
			WithContext("path", path).
			Build()
	}
	if strings.TrimSpace(string(code)) == "" {
		return nil, ferrors.FilterError("plugin file is empty").WithContext("path", path).Build()
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "load interpreter symbols").Build()
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFilter, "interpret plugin").
			WithContext("path", path).
			Build()
	}

	fnValue, err := i.Eval(goPluginEntry)
	if err != nil {
		pkg, perr := packageName(path, code)
		if perr != nil || pkg == "main" {
			return nil, missingEntry(path, err)
		}
		if fnValue, err = i.Eval(pkg + "." + goPluginEntry); err != nil {
			return nil, missingEntry(path, err)
		}
	}

	funcs, err := pluginFuncs(fnValue)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFilter, "invalid plugin").
			WithContext("path", path).
			Build()
	}

	// One interpreter backs every filter in the file.
	var mu sync.Mutex
	regs := make([]Registration, 0, len(funcs))
	for name, fn := range funcs {
		call := fn
		regs = append(regs, Registration{
			Name:   name,
			Tier:   tier,
			Origin: path,
			Factory: func(cfg map[string]any) (Filter, error) {
				if cfg == nil {
					cfg = map[string]any{}
				}
				return Func(func(text string) (string, error) {
					mu.Lock()
					defer mu.Unlock()
					return call(text, cfg)
				}), nil
			},
		})
	}
	return regs, nil
}

func missingEntry(path string, cause error) error {
	return ferrors.WrapError(cause, ferrors.CategoryFilter,
		fmt.Sprintf("plugin must define %s() map[string]func(string, map[string]interface{}) string", goPluginEntry)).
		WithContext("path", path).
		Build()
}

func packageName(path string, code []byte) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), path, code, parser.PackageClauseOnly)
	if err != nil {
		return "", err
	}
	return f.Name.Name, nil
}

type pluginFunc func(text string, cfg map[string]any) (string, error)

func pluginFuncs(value reflect.Value) (map[string]pluginFunc, error) {
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goPluginEntry)
	}
	if value.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must not take arguments", goPluginEntry)
	}
	results := value.Call(nil)
	if len(results) != 1 || results[0].Kind() != reflect.Map {
		return nil, fmt.Errorf("%s must return a map of filter functions", goPluginEntry)
	}

	out := make(map[string]pluginFunc, results[0].Len())
	iter := results[0].MapRange()
	for iter.Next() {
		if iter.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%s map keys must be strings", goPluginEntry)
		}
		name := iter.Key().String()
		fn := iter.Value()
		if fn.Kind() == reflect.Interface {
			fn = fn.Elem()
		}
		call, err := wrapPluginFunc(name, fn)
		if err != nil {
			return nil, err
		}
		out[name] = call
	}
	return out, nil
}

var (
	stringType = reflect.TypeFor[string]()
	errorType  = reflect.TypeFor[error]()
)

func wrapPluginFunc(name string, fn reflect.Value) (pluginFunc, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("filter %q is not a function", name)
	}
	t := fn.Type()
	if t.NumIn() != 2 || t.In(0) != stringType || t.In(1).Kind() != reflect.Map {
		return nil, fmt.Errorf("filter %q must take (string, map[string]interface{})", name)
	}
	withErr := t.NumOut() == 2 && t.Out(1).Implements(errorType)
	if t.NumOut() < 1 || t.NumOut() > 2 || t.Out(0) != stringType || (t.NumOut() == 2 && !withErr) {
		return nil, fmt.Errorf("filter %q must return string or (string, error)", name)
	}
	cfgType := t.In(1)

	return func(text string, cfg map[string]any) (string, error) {
		cfgValue := reflect.ValueOf(cfg)
		if !cfgValue.Type().AssignableTo(cfgType) {
			cfgValue = reflect.Zero(cfgType)
		}
		results := fn.Call([]reflect.Value{reflect.ValueOf(text), cfgValue})
		if withErr && !results[1].IsNil() {
			if err, ok := results[1].Interface().(error); ok {
				return "", err
			}
		}
		return results[0].String(), nil
	}, nil
}
