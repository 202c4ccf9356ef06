// Command shotscribe turns a short-video URL into a shot-by-shot breakdown
// script and can rewrite existing scripts.
//
// The CLI is built with cobra. "run" drives the analysis pipeline and writes
// Markdown and HTML reports; "cache", "templates", "history", "doctor" and
// "config" inspect and manage local state. Configuration is loaded once per
// invocation from --config, ~/.config/shotscribe/config.toml or
// ./shotscribe.toml, in that order.
package main
