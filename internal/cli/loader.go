package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Manifest is the decoded declaration surface of one directory of CUE
// files: capability kinds, payload projections, function declarations,
// root supplies, and the entry function.
type Manifest struct {
	Kinds       []ManifestKind
	Projections []ManifestProjection
	Funcs       []ManifestFunc
	Supplies    []ManifestSupply
	Entry       string
	FileCount   int
}

// ManifestKind declares one capability kind.
type ManifestKind struct {
	Name       string
	Payload    string
	Visibility string
	Slot       *int // explicit slot index, nil for auto-assignment
	Default    any
	HasDefault bool
}

// ManifestProjection declares one legal payload projection.
type ManifestProjection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ManifestRequire is one entry of a function's requirement list.
type ManifestRequire struct {
	Cap     string `json:"cap"`
	Mode    string `json:"mode"`
	Payload string `json:"payload"` // optional view override, defaults to the kind's payload
}

// ManifestFunc declares one function's capability surface.
type ManifestFunc struct {
	Name     string
	Requires []ManifestRequire
	Calls    []string
}

// ManifestSupply is one root-store binding at the process boundary.
type ManifestSupply struct {
	Cap   string
	Mode  string
	Value any
}

// LoadError represents an error that occurred during manifest loading.
// Err carries the underlying cause when one exists, so construction
// errors raised during program assembly stay matchable through errors.As.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	// Declaration validation errors
	ErrCodeInvalidKind     = "E101" // bad capability kind declaration
	ErrCodeInvalidFunction = "E102" // bad function declaration
	ErrCodeInvalidSupply   = "E103" // bad root supply
	ErrCodeResolution      = "E110" // construction error during resolution
)

// LoadManifest loads the declaration files from a directory.
func LoadManifest(dir string) (*Manifest, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("declarations directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing declarations directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	manifest := &Manifest{FileCount: len(cueFiles)}
	if err := decodeKinds(value, manifest); err != nil {
		return nil, err
	}
	if err := decodeFuncs(value, manifest); err != nil {
		return nil, err
	}
	if err := decodeProjections(value, manifest); err != nil {
		return nil, err
	}
	if err := decodeSupplies(value, manifest); err != nil {
		return nil, err
	}

	if entryVal := value.LookupPath(cue.ParsePath("entry")); entryVal.Exists() {
		entry, err := entryVal.String()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("entry must be a string: %v", err)}
		}
		manifest.Entry = entry
	}

	if len(manifest.Kinds) == 0 && len(manifest.Funcs) == 0 {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "no capabilities or functions found in declarations"}
	}
	return manifest, nil
}

// decodeKinds extracts the capability struct: one field per kind.
func decodeKinds(value cue.Value, manifest *Manifest) error {
	kindsVal := value.LookupPath(cue.ParsePath("capability"))
	if !kindsVal.Exists() {
		return nil
	}
	iter, err := kindsVal.Fields()
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("iterating capabilities: %v", err)}
	}
	for iter.Next() {
		kind := ManifestKind{Name: iter.Selector().Unquoted()}
		v := iter.Value()

		payload := v.LookupPath(cue.ParsePath("payload"))
		if !payload.Exists() {
			return &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("capability %s: missing payload", kind.Name)}
		}
		if kind.Payload, err = payload.String(); err != nil {
			return &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("capability %s: payload: %v", kind.Name, err)}
		}
		if vis := v.LookupPath(cue.ParsePath("visibility")); vis.Exists() {
			if kind.Visibility, err = vis.String(); err != nil {
				return &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("capability %s: visibility: %v", kind.Name, err)}
			}
		}
		if slot := v.LookupPath(cue.ParsePath("slot")); slot.Exists() {
			idx, err := slot.Int64()
			if err != nil {
				return &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("capability %s: slot: %v", kind.Name, err)}
			}
			i := int(idx)
			kind.Slot = &i
		}
		if def := v.LookupPath(cue.ParsePath("default")); def.Exists() {
			if err := def.Decode(&kind.Default); err != nil {
				return &LoadError{Code: ErrCodeInvalidKind, Message: fmt.Sprintf("capability %s: default: %v", kind.Name, err)}
			}
			kind.HasDefault = true
		}
		manifest.Kinds = append(manifest.Kinds, kind)
	}
	return nil
}

// decodeFuncs extracts the function struct: one field per declaration.
func decodeFuncs(value cue.Value, manifest *Manifest) error {
	funcsVal := value.LookupPath(cue.ParsePath("function"))
	if !funcsVal.Exists() {
		return nil
	}
	iter, err := funcsVal.Fields()
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidFunction, Message: fmt.Sprintf("iterating functions: %v", err)}
	}
	for iter.Next() {
		fn := ManifestFunc{Name: iter.Selector().Unquoted()}
		v := iter.Value()

		if reqs := v.LookupPath(cue.ParsePath("requires")); reqs.Exists() {
			if err := reqs.Decode(&fn.Requires); err != nil {
				return &LoadError{Code: ErrCodeInvalidFunction, Message: fmt.Sprintf("function %s: requires: %v", fn.Name, err)}
			}
		}
		if calls := v.LookupPath(cue.ParsePath("calls")); calls.Exists() {
			if err := calls.Decode(&fn.Calls); err != nil {
				return &LoadError{Code: ErrCodeInvalidFunction, Message: fmt.Sprintf("function %s: calls: %v", fn.Name, err)}
			}
		}
		manifest.Funcs = append(manifest.Funcs, fn)
	}
	return nil
}

// decodeProjections extracts the projection list.
func decodeProjections(value cue.Value, manifest *Manifest) error {
	projVal := value.LookupPath(cue.ParsePath("projection"))
	if !projVal.Exists() {
		return nil
	}
	if err := projVal.Decode(&manifest.Projections); err != nil {
		return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("decoding projections: %v", err)}
	}
	return nil
}

// decodeSupplies extracts the supply list: the root store's bindings.
func decodeSupplies(value cue.Value, manifest *Manifest) error {
	supplyVal := value.LookupPath(cue.ParsePath("supply"))
	if !supplyVal.Exists() {
		return nil
	}
	list, err := supplyVal.List()
	if err != nil {
		return &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf("supply must be a list: %v", err)}
	}
	for list.Next() {
		v := list.Value()
		var supply ManifestSupply
		capName := v.LookupPath(cue.ParsePath("cap"))
		if !capName.Exists() {
			return &LoadError{Code: ErrCodeInvalidSupply, Message: "supply entry missing cap"}
		}
		if supply.Cap, err = capName.String(); err != nil {
			return &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf("supply cap: %v", err)}
		}
		if mode := v.LookupPath(cue.ParsePath("mode")); mode.Exists() {
			if supply.Mode, err = mode.String(); err != nil {
				return &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf("supply %s: mode: %v", supply.Cap, err)}
			}
		}
		if val := v.LookupPath(cue.ParsePath("value")); val.Exists() {
			if err := val.Decode(&supply.Value); err != nil {
				return &LoadError{Code: ErrCodeInvalidSupply, Message: fmt.Sprintf("supply %s: value: %v", supply.Cap, err)}
			}
		}
		manifest.Supplies = append(manifest.Supplies, supply)
	}
	return nil
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
