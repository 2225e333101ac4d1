package command

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Spec is a typed descriptor of one external tool invocation.
type Spec interface {
	// Executable returns the binary name, resolved against the configured tool directories.
	Executable() string
	// Args returns the ordered argument list.
	Args() ([]string, error)
	// Outputs returns the files the invocation produces, resolved against dir.
	Outputs(dir string) (map[string]any, error)
}

// FileChecker is implemented by descriptors reading files that must exist before running.
type FileChecker interface {
	RequiredFiles() []string
}

// Resolver maps a binary name to the path used to invoke it.
type Resolver func(executable string) string

// DirResolver returns a Resolver that looks binaries up in dirs, keyed by binary name.
// Binaries without a configured directory are left to the PATH lookup of the launcher.
func DirResolver(dirs map[string]string) Resolver {
	return func(executable string) string {
		dir, ok := dirs[executable]
		if !ok || dir == "" {
			return executable
		}

		return filepath.Join(dir, executable)
	}
}

// Cmdline renders the full command line of spec.
func Cmdline(spec Spec, resolve Resolver) (string, error) {
	args, err := spec.Args()
	if err != nil {
		return "", errors.Wrapf(err, "unable to build %s arguments", spec.Executable())
	}

	executable := spec.Executable()
	if resolve != nil {
		executable = resolve(executable)
	}

	return strings.Join(append([]string{executable}, args...), " "), nil
}

// Validate checks that every file spec reads exists.
func Validate(spec Spec) error {
	checker, ok := spec.(FileChecker)
	if !ok {
		return nil
	}

	for _, path := range checker.RequiredFiles() {
		if path == "" {
			continue
		}
		_, err := os.Stat(path)
		if err == nil {
			continue
		}
		if os.IsNotExist(err) {
			return errors.Wrap(ErrFileNotFound, path)
		}

		return errors.Wrapf(err, "unable to stat %s", path)
	}

	return nil
}

// Abs resolves path against dir unless it is already absolute.
func Abs(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(dir, path)
}

// AbsPaths resolves paths against the working directory of the process. Jobs run in their own
// directories, so paths handed to a workflow must not depend on where regflow was started.
func AbsPaths(paths []string) ([]string, error) {
	res := make([]string, len(paths))

	for i, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve %s", path)
		}
		res[i] = abs
	}

	return res, nil
}

// SplitExt splits a file name into its stem and extension, keeping compound extensions
// such as .nii.gz together.
func SplitExt(name string) (string, string) {
	base := filepath.Base(name)
	for _, ext := range []string{".nii.gz", ".nrrd.gz", ".hdr.gz", ".img.gz"} {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return strings.TrimSuffix(base, ext), ext
		}
	}
	ext := filepath.Ext(base)

	return strings.TrimSuffix(base, ext), ext
}
