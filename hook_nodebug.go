//go:build !variant_debug
// +build !variant_debug

package variant

const debug = false

func setupAssignerTrace(a *Assigner) {}
