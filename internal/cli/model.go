package cli

import (
	"errors"

	"github.com/roach88/deltasim/internal/compiler"
)

// loadModel loads the model in dir and reports load and compile failures
// through f as command errors.
func loadModel(f *OutputFormatter, dir string) (*compiler.LoadResult, error) {
	res, err := compiler.LoadDir(dir)
	if err != nil {
		code, message := describeLoadError(err)
		_ = f.Error(code, message, nil)
		return nil, WrapExitError(ExitCommandError, "failed to load model", err)
	}
	f.VerboseLog("Loaded model %q from %d CUE file(s) in %s", res.Model.Name, res.FileCount, dir)
	return res, nil
}

// describeLoadError maps a compiler error to an error code and message.
func describeLoadError(err error) (code, message string) {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, err.Error()
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return ErrCodeCompile, err.Error()
	}
	return compiler.ErrCodeGeneric, err.Error()
}
