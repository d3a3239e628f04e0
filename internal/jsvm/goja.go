package jsvm

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dop251/goja"
)

// Goja is a Scope backed by one goja runtime. window, self and globalThis
// all name the global object, and console output goes to the configured
// writer.
type Goja struct {
	vm  *goja.Runtime
	out io.Writer
}

func NewGoja(console io.Writer) *Goja {
	if console == nil {
		console = io.Discard
	}
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	g := &Goja{vm: vm, out: console}

	global := vm.GlobalObject()
	_ = vm.Set("window", global)
	_ = vm.Set("self", global)

	c := &consoleAPI{out: console}
	c.register(vm)
	return g
}

// Set exposes a Go value to scripts under name.
func (g *Goja) Set(name string, value any) error {
	return g.vm.Set(name, value)
}

// Get exports a global, or returns nil when it is undefined.
func (g *Goja) Get(name string) any {
	v := g.vm.Get(name)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

func (g *Goja) Eval(name, code string) (any, error) {
	prog, err := goja.Compile(name, code, false)
	if err != nil {
		return nil, &ExecError{Label: name, Message: err.Error(), Err: err}
	}
	v, err := g.vm.RunProgram(prog)
	if err != nil {
		return nil, execError(name, err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

func execError(name string, err error) *ExecError {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		msg := ex.Error()
		if val := ex.Value(); val != nil {
			msg = val.String()
		}
		return &ExecError{Label: name, Message: msg, Stack: ex.String(), Err: err}
	}
	var intr *goja.InterruptedError
	if errors.As(err, &intr) {
		return &ExecError{Label: name, Message: "interrupted: " + fmt.Sprint(intr.Value()), Stack: intr.String(), Err: err}
	}
	return &ExecError{Label: name, Message: err.Error(), Err: err}
}

type consoleAPI struct {
	out io.Writer
}

func (c *consoleAPI) register(vm *goja.Runtime) {
	obj := vm.NewObject()
	for _, level := range []string{"log", "info", "debug", "warn", "error"} {
		prefix := ""
		if level == "warn" || level == "error" {
			prefix = level + ": "
		}
		_ = obj.Set(level, func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			fmt.Fprintln(c.out, prefix+strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	_ = vm.Set("console", obj)
}
