// Package nodelist reads and writes the virtual node list, the artifact
// downstream tools consume: one "<address>\t<name>" line per running node,
// ordered by node index.
package nodelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

// Record maps a virtual node to its address.
type Record struct {
	Address string
	Name    string
}

func (r Record) String() string {
	return r.Address + "\t" + r.Name
}

// Sort orders records by the numeric suffix of their names.
func Sort(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return naming.CompareVNodes(a.Name, b.Name)
	})
}

// Encode writes records to w in the order given.
func Encode(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintln(bw, r.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Write replaces path with records. The content is written to a temporary
// file in the same directory, synced, then renamed over path, so readers
// see either the previous list or the complete new one.
func Write(path string, records []Record) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary node list: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, records); err != nil {
		return fmt.Errorf("failed to write node list: %w", err)
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("failed to set node list permissions: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync node list: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close node list: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move node list into place: %w", err)
	}
	return nil
}

// Parse reads a node list. Blank lines are ignored.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		addr, name, ok := strings.Cut(text, "\t")
		if !ok || addr == "" || name == "" {
			return nil, fmt.Errorf("line %d: expected \"<address>\\t<name>\", got %q", line, text)
		}
		records = append(records, Record{Address: addr, Name: name})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Read parses the node list at path.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}
