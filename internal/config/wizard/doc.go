// Package wizard provides an interactive configuration wizard for vdc.
//
// It uses charmbracelet/huh to collect the site, node counts, walltime and
// images of a run, then writes a vdc.yaml that [config.LoadFile] accepts.
// The entry point is RunWizard; BuildConfig turns its answers into a
// Config and WriteConfig renders the file.
package wizard
