package data

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close() //nolint:errcheck

	var out []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]interface{}
		test.That(t, json.Unmarshal(sc.Bytes(), &rec), test.ShouldBeNil)
		out = append(out, rec)
	}
	test.That(t, sc.Err(), test.ShouldBeNil)
	return out
}

func TestWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.jsonl")

	w, err := NewWriter(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w.Write(map[string]interface{}{"seed": 1}), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	// a second writer appends, never truncates
	w, err = NewWriter(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w.Write(map[string]interface{}{"seed": 2}), test.ShouldBeNil)
	test.That(t, w.Flush(), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	recs := readLines(t, path)
	test.That(t, recs, test.ShouldHaveLength, 2)
	test.That(t, recs[0]["seed"], test.ShouldEqual, 1)
	test.That(t, recs[1]["seed"], test.ShouldEqual, 2)
}

func TestWriterCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	w, err := NewWriter(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)
	test.That(t, w.Flush(), test.ShouldBeNil)
	test.That(t, w.Write(map[string]interface{}{}), test.ShouldNotBeNil)
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	test.That(t, EnsureDirs(root), test.ShouldBeNil)
	// idempotent
	test.That(t, EnsureDirs(root), test.ShouldBeNil)

	for _, dir := range RequiredDirs() {
		info, err := os.Stat(filepath.Join(root, dir))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, info.IsDir(), test.ShouldBeTrue)
	}
}
