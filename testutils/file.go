package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

// TempFile writes contents to a file called name in a fresh temporary directory and returns its
// path.
func TempFile(tb testing.TB, name, contents string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	WriteFile(tb, path, contents)
	return path
}

// WriteFile replaces the contents of path and fails the test if it cannot.
func WriteFile(tb testing.TB, path, contents string) {
	tb.Helper()
	test.That(tb, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
}
