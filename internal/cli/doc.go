// Package cli implements the command-line interface for kids-events.
//
// The root command runs the whole refresh (download the CSV, replace the
// events table, regenerate the page) and prints a short summary as text or
// JSON. The build subcommand regenerates the page from the stored events
// only, which is useful after a template or config change.
package cli
