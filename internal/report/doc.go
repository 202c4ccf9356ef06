// Package report writes generated scripts to the output directory as
// Markdown and as a standalone HTML page.
//
// Breakdowns go to output_dir/scripts/<date>/ and rewrites to
// output_dir/rewrites/<date>/, both named <timestamp>_<title>. The HTML page
// renders the first Markdown table of the script as an HTML table; every cell
// is escaped by html/template and <br> markers become line breaks.
package report
