package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepTitle(t *testing.T) {
	assert.Equal(t, "Retrieve Grid'5000 resources", StepTitle("reservation"))
	assert.Equal(t, "Configure distem on physical hosts", StepTitle("fabric"))
	assert.Equal(t, "Create virtual nodes", StepTitle("vnodes"))
	assert.Empty(t, StepTitle("validation"))
}

func TestNewPrinter_NotTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	assert.False(t, p.styled)
	assert.False(t, IsTerminal(&buf))
}

func TestPrinter_PlainStep(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Step("Create virtual nodes")

	assert.Equal(t, "==> Create virtual nodes\n", buf.String())
}

func TestPrinter_PlainDone(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Done("Distem is ready", []Field{
		{Key: "coordinator", Value: "graphene-1.nancy.grid5000.fr"},
		{Key: "vnodes", Value: "100/100"},
	})

	assert.Equal(t, "[OK] Distem is ready\n"+
		"    coordinator   graphene-1.nancy.grid5000.fr\n"+
		"    vnodes        100/100\n", buf.String())
}

func TestPrinter_PlainFailed(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Failed("fabric phase failed", nil)

	assert.Equal(t, "[!!] fabric phase failed\n", buf.String())
}

func TestPrinter_Styled(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf, styled: true}
	p.Step("Create virtual nodes")
	p.Done("ready", []Field{{Key: "vnodes", Value: "4"}})

	assert.Contains(t, buf.String(), "==> Create virtual nodes")
	assert.Contains(t, buf.String(), "[OK] ready")
	assert.Contains(t, buf.String(), "vnodes")
}

func TestTable(t *testing.T) {
	out := Table([]string{"ID", "STATUS"}, [][]string{{"1", "succeeded"}, {"2", "failed"}})

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "failed")
}
