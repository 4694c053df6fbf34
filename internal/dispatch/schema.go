package dispatch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// argType maps each tool name to the Go struct describing its arguments.
// The teacher generates one of these per MCP tool (internal/mcp/tools.go's
// postArgs, getArgs, ...) and lets the MCP SDK derive a JSON schema from the
// struct tags; this package has no SDK to do that for it; it derives the
// schema itself, once per tool, from the same tagged structs tools.go
// already defines for json.Unmarshal.
var argType = map[string]reflect.Type{
	"debug_launch":                reflect.TypeOf(launchArgs{}),
	"debug_attach":                reflect.TypeOf(attachArgs{}),
	"debug_breakpoint":            reflect.TypeOf(breakpointArgs{}),
	"debug_function_breakpoint":   reflect.TypeOf(functionBreakpointArgs{}),
	"debug_run":                   reflect.TypeOf(runArgs{}),
	"debug_stop":                  reflect.TypeOf(stopArgs{}),
	"debug_inspect":               reflect.TypeOf(inspectArgs{}),
	"debug_stack_trace":           reflect.TypeOf(stackTraceArgs{}),
	"debug_threads":               reflect.TypeOf(sessionOnlyArgs{}),
	"debug_scopes":                reflect.TypeOf(scopesArgs{}),
	"debug_disassemble":           reflect.TypeOf(disassembleArgs{}),
	"debug_memory_read":           reflect.TypeOf(memoryReadArgs{}),
	"debug_memory_write":          reflect.TypeOf(memoryWriteArgs{}),
	"debug_set_variable":          reflect.TypeOf(setVariableArgs{}),
	"debug_goto":                  reflect.TypeOf(gotoArgs{}),
	"debug_exception_breakpoints": reflect.TypeOf(exceptionBreakpointsArgs{}),
	"debug_sessions":              nil, // takes no arguments
	"debug_capabilities":          reflect.TypeOf(sessionOnlyArgs{}),
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// validateArgs compiles (and caches) a JSON schema for tool from its
// registered argument struct, then validates args against it. Tools with no
// registered struct, or no entry at all, accept anything the per-tool
// json.Unmarshal call in their handler is willing to parse.
func validateArgs(tool string, args json.RawMessage) error {
	typ, known := argType[tool]
	if !known || typ == nil {
		return nil
	}

	schema, err := schemaFor(tool, typ)
	if err != nil {
		return fmt.Errorf("internal schema error for %s: %w", tool, err)
	}

	var instance any
	if len(args) == 0 {
		instance = map[string]any{}
	} else if err := json.Unmarshal(args, &instance); err != nil {
		return fmt.Errorf("invalid JSON for %s: %w", tool, err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return nil
}

func schemaFor(tool string, typ reflect.Type) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if cached, ok := schemaCache[tool]; ok {
		return cached, nil
	}

	schema, err := jsonschema.For(typ, nil)
	if err != nil {
		return nil, err
	}
	schemaCache[tool] = schema
	return schema, nil
}
