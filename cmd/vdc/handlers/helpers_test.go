package handlers

import (
	"bytes"
	"testing"
)

// saveAndRestoreFactories snapshots every factory variable and restores
// them when the test ends.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadConfig := loadConfig
	origStderr := stderr
	origStdout := stdout
	origNewServices := newServices
	origNewSimServices := newSimServices
	origOpenLedger := openLedger
	origNewPublisher := newPublisher
	origNewRunner := newRunner
	origIsInteractive := isInteractive
	origFileExists := fileExists
	origConfirmOverwrite := confirmOverwrite
	origRunWizard := runWizard
	origWriteConfig := writeConfig

	t.Cleanup(func() {
		loadConfig = origLoadConfig
		stderr = origStderr
		stdout = origStdout
		newServices = origNewServices
		newSimServices = origNewSimServices
		openLedger = origOpenLedger
		newPublisher = origNewPublisher
		newRunner = origNewRunner
		isInteractive = origIsInteractive
		fileExists = origFileExists
		confirmOverwrite = origConfirmOverwrite
		runWizard = origRunWizard
		writeConfig = origWriteConfig
	})
}

// captureOutput redirects stdout and stderr to buffers.
func captureOutput(t *testing.T) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}
	stdout, stderr = out, errOut
	return out, errOut
}
