package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/specialistvlad/expgrid/internal/workspace"
)

// ParamTag is the struct tag naming an executor input field's parameter.
const ParamTag = "exp"

// NewExecutor adapts a function taking a typed input struct. The declared
// parameters are the struct's `exp:"name"` tags; arguments are decoded into a
// fresh *In before each call, and absent parameters keep their zero value.
func NewExecutor[In, Out any](fn func(ctx context.Context, ws *workspace.Workspace, in *In) (Out, error)) *Executor {
	params := ParamsOf(reflect.TypeOf((*In)(nil)).Elem())
	return &Executor{
		Params: params,
		Fn: func(ctx context.Context, ws *workspace.Workspace, args Args) (any, error) {
			in := new(In)
			if err := DecodeArgs(args, in); err != nil {
				return nil, err
			}
			return fn(ctx, ws, in)
		},
	}
}

// NewEvaluator adapts a function that only needs the executor's result.
func NewEvaluator[R any](fn func(ctx context.Context, ws *workspace.Workspace, result R) error) *Evaluator {
	return &Evaluator{
		Fn: func(ctx context.Context, ws *workspace.Workspace, result any, _ Args) error {
			r, err := asResult[R](result)
			if err != nil {
				return err
			}
			return fn(ctx, ws, r)
		},
	}
}

// NewArgsEvaluator adapts a function that also receives the original,
// unfiltered executor arguments.
func NewArgsEvaluator[R any](fn func(ctx context.Context, ws *workspace.Workspace, result R, args Args) error) *Evaluator {
	return &Evaluator{
		WantsArgs: true,
		Fn: func(ctx context.Context, ws *workspace.Workspace, result any, args Args) error {
			r, err := asResult[R](result)
			if err != nil {
				return err
			}
			return fn(ctx, ws, r, args)
		},
	}
}

// ParamsOf returns the parameter names declared by a struct type's `exp`
// tags, in field order. Untagged fields and `exp:"-"` are not parameters.
func ParamsOf(t reflect.Type) []string {
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("executor input must be a struct, got %s", t))
	}
	var params []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.Split(field.Tag.Get(ParamTag), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		params = append(params, name)
	}
	return params
}

// DecodeArgs decodes args into the struct pointed to by out, matching `exp`
// tags. Absent entries are skipped.
func DecodeArgs(args Args, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:              ParamTag,
		IgnoreUntaggedFields: true,
		WeaklyTypedInput:     true,
		DecodeHook:           mapstructure.StringToTimeDurationHookFunc(),
		Result:               out,
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}
	if err := decoder.Decode(args.Present()); err != nil {
		return fmt.Errorf("failed to decode executor arguments: %w", err)
	}
	return nil
}

func asResult[R any](result any) (R, error) {
	var zero R
	if result == nil {
		return zero, nil
	}
	r, ok := result.(R)
	if !ok {
		return zero, fmt.Errorf("evaluator expects a result of type %s, got %T", reflect.TypeOf((*R)(nil)).Elem(), result)
	}
	return r, nil
}
