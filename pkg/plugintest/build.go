package plugintest

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// BuildPlugin builds the main package pkg, given relative to the module
// root, with -buildmode=plugin and writes it to out. The test is skipped
// when this platform or toolchain cannot build Go plugins.
func BuildPlugin(t testing.TB, pkg, out string) {
	t.Helper()
	if testing.Short() {
		t.Skip("building Go plugins is slow")
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "freebsd" {
		t.Skipf("Go plugins are not supported on %s", runtime.GOOS)
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not found")
	}
	if goEnv(t, goBin, "CGO_ENABLED") != "1" {
		t.Skip("Go plugins need cgo")
	}
	gomod := goEnv(t, goBin, "GOMOD")
	if gomod == "" || gomod == "/dev/null" {
		t.Skip("not inside the module")
	}

	cmd := exec.Command(goBin, "build", "-buildmode=plugin", "-o", out, pkg)
	cmd.Dir = filepath.Dir(gomod)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build plugin %s: %v\n%s", pkg, err, output)
	}
}

func goEnv(t testing.TB, goBin, key string) string {
	t.Helper()
	out, err := exec.Command(goBin, "env", key).Output()
	if err != nil {
		t.Skipf("go env %s failed: %v", key, err)
	}
	return strings.TrimSpace(string(out))
}

// SkipIfPluginMismatch skips the test when a built plugin cannot be opened
// because the test binary was compiled differently, as under -race or
// -cover
func SkipIfPluginMismatch(t testing.TB, err error) {
	t.Helper()
	if err != nil && strings.Contains(err.Error(), "different version of package") {
		t.Skipf("plugin does not match the test binary: %v", err)
	}
}
