// Package loader reads workflow descriptions from disk.
//
// The format is chosen by extension: .yaml/.yml, .json, .cue or .hcl.
// A directory is loaded as a CUE package. Every format decodes into the
// same ir.WorkflowSpec; nothing format-specific reaches the compiler.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ctmflow/internal/compiler"
	"github.com/roach88/ctmflow/internal/ir"
)

// Error code constants, shared with the CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeUnsupported = "E002" // Unsupported file extension
	ErrCodeNoJobs      = "E003" // Workflow declares no jobs
	ErrCodeParseFailed = "E004" // File could not be parsed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or schema check failed
	ErrCodeWriteFailed = "E007" // File write error
)

// Extensions lists the accepted workflow file extensions.
var Extensions = []string{".yaml", ".yml", ".json", ".cue", ".hcl"}

// Error is a workflow loading failure.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads the workflow at path.
func Load(path string) (*ir.WorkflowSpec, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("workflow not found: %s", path)}
	}
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing workflow: %v", err)}
	}

	var spec *ir.WorkflowSpec
	if info.IsDir() {
		spec, err = loadCUEPackage(path)
	} else {
		spec, err = loadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if len(spec.Jobs) == 0 {
		return nil, &Error{Code: ErrCodeNoJobs, Message: fmt.Sprintf("no jobs declared in %s", path)}
	}
	return spec, nil
}

// Decode parses data in the format named by ext (".yaml", ".json", ...).
// name is used in diagnostics.
func Decode(name, ext string, data []byte) (*ir.WorkflowSpec, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return decodeYAML(name, data)
	case ".json":
		return decodeJSON(name, data)
	case ".cue":
		return decodeCUE(name, data)
	case ".hcl":
		return decodeHCL(name, data)
	}
	return nil, &Error{
		Code:    ErrCodeUnsupported,
		Message: fmt.Sprintf("unsupported workflow format %q (want one of %s)", ext, strings.Join(Extensions, ", ")),
	}
}

func loadFile(path string) (*ir.WorkflowSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading workflow: %v", err)}
	}
	return Decode(path, filepath.Ext(path), data)
}

func decodeYAML(name string, data []byte) (*ir.WorkflowSpec, error) {
	var spec ir.WorkflowSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&spec); err != nil {
		return nil, &Error{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	return &spec, nil
}

func decodeJSON(name string, data []byte) (*ir.WorkflowSpec, error) {
	var spec ir.WorkflowSpec
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, &Error{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	return &spec, nil
}

func decodeCUE(name string, data []byte) (*ir.WorkflowSpec, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(name))
	return fromCUE(v)
}

// loadCUEPackage loads every .cue file in dir as one package instance.
func loadCUEPackage(dir string) (*ir.WorkflowSpec, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &Error{Code: ErrCodeParseFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &Error{Code: ErrCodeParseFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	return fromCUE(cuecontext.New().BuildInstance(inst))
}

func fromCUE(v cue.Value) (*ir.WorkflowSpec, error) {
	spec, err := compiler.CompileWorkflow(v)
	if err != nil {
		var srcErr *compiler.SourceError
		if errors.As(err, &srcErr) {
			return nil, &Error{Code: ErrCodeBuildFailed, Message: srcErr.Message, Pos: srcErr.Pos}
		}
		return nil, &Error{Code: ErrCodeBuildFailed, Message: err.Error()}
	}
	return spec, nil
}
