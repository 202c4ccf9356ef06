// Package textutil provides small text helpers for output file naming and
// console previews.
package textutil
