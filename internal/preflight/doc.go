// Package preflight provides readiness checks for the binaries, directories
// and remote endpoints shotscribe depends on.
//
// The CLI "shotscribe doctor" command runs RunAll and renders every Result.
// Each check is independent; a failing check never stops the others.
package preflight
