package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// HashMethod selects how files referenced by inputs take part in the input hash.
type HashMethod string

const (
	// HashTimestamp hashes the size and modification time of files.
	HashTimestamp HashMethod = "timestamp"
	// HashContent hashes the bytes of files.
	HashContent HashMethod = "content"
)

// Files kept in every job directory to suppress reruns.
const (
	HashFile   = "_inputs.hash"
	ResultFile = "_result.yaml"
)

func hashInputs(method HashMethod, iface Interface, in Inputs) (string, error) {
	h := sha256.New()

	fmt.Fprintf(h, "%T\n", iface)
	if fp, ok := iface.(Fingerprinter); ok {
		_, _ = io.WriteString(h, fp.Fingerprint())
	}

	raw, err := yaml.Marshal(map[string]any(in))
	if err != nil {
		return "", errors.Wrap(err, "unable to marshal inputs")
	}
	_, _ = h.Write(raw)

	files, err := referencedFiles(in)
	if err != nil {
		return "", err
	}

	for _, path := range files {
		err := hashFile(h, method, path)
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(h hash.Hash, method HashMethod, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "unable to stat %s", path)
	}

	if method != HashContent {
		fmt.Fprintf(h, "%s:%d:%d\n", path, info.Size(), info.ModTime().UnixNano())

		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	fmt.Fprintf(h, "%s\n", path)

	_, err = io.Copy(h, file)
	if err != nil {
		return errors.Wrapf(err, "unable to read %s", path)
	}

	return nil
}

// referencedFiles returns the sorted absolute paths of existing regular files found anywhere in
// values.
func referencedFiles(values any) ([]string, error) {
	var generic any

	err := DecodeValue(values, &generic)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	collectPaths(generic, seen, true)

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	sort.Strings(files)

	return files, nil
}

func collectPaths(value any, seen map[string]struct{}, onlyExisting bool) {
	switch typed := value.(type) {
	case string:
		if !filepath.IsAbs(typed) || strings.ContainsAny(typed, "\n") {
			return
		}
		if onlyExisting {
			info, err := os.Stat(typed)
			if err != nil || !info.Mode().IsRegular() {
				return
			}
		}
		seen[typed] = struct{}{}
	case []any:
		for _, item := range typed {
			collectPaths(item, seen, onlyExisting)
		}
	case map[string]any:
		for _, item := range typed {
			collectPaths(item, seen, onlyExisting)
		}
	}
}

// loadCache returns the outputs recorded in dir when they were produced from inputs hashing to
// sum and every output file still exists.
func loadCache(dir, sum string) (Outputs, bool) {
	previous, err := os.ReadFile(filepath.Join(dir, HashFile))
	if err != nil || strings.TrimSpace(string(previous)) != sum {
		return nil, false
	}

	raw, err := os.ReadFile(filepath.Join(dir, ResultFile))
	if err != nil {
		return nil, false
	}

	outs := Outputs{}

	err = yaml.Unmarshal(raw, &outs)
	if err != nil {
		return nil, false
	}

	var generic any
	if DecodeValue(map[string]any(outs), &generic) != nil {
		return nil, false
	}

	expected := map[string]struct{}{}
	collectPaths(generic, expected, false)

	for path := range expected {
		if _, err := os.Stat(path); err != nil {
			return nil, false
		}
	}

	return outs, true
}

func hasRun(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, HashFile))

	return err == nil
}

func clearCache(dir string) error {
	for _, name := range []string{HashFile, ResultFile} {
		err := os.Remove(filepath.Join(dir, name))
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "unable to remove %s", name)
		}
	}

	return nil
}

func writeCache(dir, sum string, outs Outputs) error {
	raw, err := yaml.Marshal(map[string]any(outs))
	if err != nil {
		return errors.Wrap(err, "unable to marshal outputs")
	}

	err = os.WriteFile(filepath.Join(dir, ResultFile), raw, 0o644) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, "unable to write result file")
	}

	err = os.WriteFile(filepath.Join(dir, HashFile), []byte(sum+"\n"), 0o644) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, "unable to write hash file")
	}

	return nil
}
