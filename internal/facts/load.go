package facts

import (
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// EmissionExt is the suffix of every analyzer emission file.
const EmissionExt = ".csv"

type loadConfig struct {
	onlyImpl bool
	workers  int
}

// LoadOption configures Load and LoadFile.
type LoadOption func(*loadConfig)

// WithOnlyImpl keeps only implementation-owning records and drops duplicate
// rows emitted when a header is compiled into several translation units.
func WithOnlyImpl() LoadOption {
	return func(c *loadConfig) {
		c.onlyImpl = true
	}
}

// WithWorkers bounds how many emission files are parsed concurrently.
// Values below 1 mean runtime.NumCPU().
func WithWorkers(n int) LoadOption {
	return func(c *loadConfig) {
		c.workers = n
	}
}

// EmissionPrefix returns the file-name prefix the analyzer uses for the
// emissions of relPath: the hex SHA-1 of the slash-separated path relative
// to the source root.
func EmissionPrefix(relPath string) string {
	sum := sha1.Sum([]byte(filepath.ToSlash(filepath.Clean(relPath))))
	return hex.EncodeToString(sum[:])
}

// Load reads every emission file in dir and merges them into one table.
func Load(dir string, opts ...LoadOption) (*Table, error) {
	paths, err := emissionFiles(dir, "")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &FactSourceMissingError{Dir: dir}
	}
	return loadPaths(paths, opts...)
}

// LoadFile reads only the emission files belonging to relPath.
func LoadFile(dir, relPath string, opts ...LoadOption) (*Table, error) {
	paths, err := emissionFiles(dir, EmissionPrefix(relPath))
	if err != nil {
		var missing *FactSourceMissingError
		if errors.As(err, &missing) {
			missing.File = relPath
		}
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &FactSourceMissingError{Dir: dir, File: relPath}
	}
	return loadPaths(paths, opts...)
}

// emissionFiles lists emission files in dir, sorted by name. A non-empty
// prefix restricts the result to "<prefix>.csv" and "<prefix>.*.csv".
func emissionFiles(dir, prefix string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &FactSourceMissingError{Dir: dir}
		}
		return nil, fmt.Errorf("stat emission folder: %w", err)
	}
	if !info.IsDir() {
		return nil, &FactSourceMissingError{Dir: dir}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read emission folder: %w", err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, EmissionExt) {
			continue
		}
		if prefix != "" && name != prefix+EmissionExt && !strings.HasPrefix(name, prefix+".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

type parsedRow struct {
	rec  Record
	line int
}

// loadPaths parses paths concurrently and merges them in path order so the
// resulting table does not depend on scheduling.
func loadPaths(paths []string, opts ...LoadOption) (*Table, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	workers := cfg.workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	results := make([][]parsedRow, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			rows, err := parseEmissionFile(p)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := NewTable()
	seen := make(map[string]bool)
	for i, rows := range results {
		for _, row := range rows {
			if cfg.onlyImpl {
				if !IsImplKind(row.rec.Kind) {
					continue
				}
				k := row.rec.key()
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			if err := t.Add(row.rec); err != nil {
				return nil, &FactFormatError{File: paths[i], Line: row.line, Kind: row.rec.Kind, Reason: err.Error()}
			}
		}
	}
	return t, nil
}

func parseEmissionFile(path string) ([]parsedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open emission file: %w", err)
	}
	defer f.Close()
	return parseEmission(path, f)
}

// parseEmission reads rows of the form kind,name1,value1,name2,value2,...
func parseEmission(path string, r io.Reader) ([]parsedRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var rows []parsedRow
	for {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &FactFormatError{File: path, Line: pe.Line, Reason: pe.Err.Error()}
			}
			return nil, fmt.Errorf("read emission file %s: %w", path, err)
		}
		line, _ := cr.FieldPos(0)

		kind := strings.TrimSpace(cells[0])
		if kind == "" {
			return nil, &FactFormatError{File: path, Line: line, Reason: "empty kind"}
		}
		if (len(cells)-1)%2 != 0 {
			return nil, &FactFormatError{File: path, Line: line, Kind: kind,
				Reason: fmt.Sprintf("odd number of field cells (%d)", len(cells)-1)}
		}
		rows = append(rows, parsedRow{rec: NewRecord(kind, cells[1:]...), line: line})
	}
	return rows, nil
}
