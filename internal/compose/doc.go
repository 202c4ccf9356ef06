// Package compose turns an analysis into prompt text and asks the text model
// for the final breakdown or rewrite.
//
// Templates are Markdown files grouped by category (breakdown, rewrite). A
// template directory configured in paths.templates_dir takes precedence over
// the built-in templates embedded in the binary. Placeholders use the
// {variable} form. The rendered text is split on a "# User Prompt" (or
// "# 用户提示词") heading into the system and user prompts.
package compose
