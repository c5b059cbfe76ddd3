package debug

import (
	"fmt"
	"os"
	"strconv"

	"github.com/signadot/treestate/ir"
)

type debug struct {
	Tweak     bool
	Snapshot  bool
	Patch     bool
	Reconcile bool
	Check     bool
}

var d *debug

func init() {
	d = &debug{}
	d.Tweak = boolEnv("TS_DEBUG_TWEAK")
	d.Snapshot = boolEnv("TS_DEBUG_SNAPSHOT")
	d.Patch = boolEnv("TS_DEBUG_PATCH")
	d.Reconcile = boolEnv("TS_DEBUG_RECONCILE")
	d.Check = boolEnv("TS_DEBUG_CHECK")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Tweak() bool {
	return d.Tweak
}
func Snapshot() bool {
	return d.Snapshot
}
func Patch() bool {
	return d.Patch
}
func Reconcile() bool {
	return d.Reconcile
}
func Check() bool {
	return d.Check
}

// Logf writes a line to stderr. *ir.Node arguments are rendered as JSON.
func Logf(format string, args ...any) {
	for i, a := range args {
		y, ok := a.(*ir.Node)
		if !ok || y == nil {
			continue
		}
		if d, err := ir.ToJSON(y); err == nil {
			args[i] = string(d)
		}
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
