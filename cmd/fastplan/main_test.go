package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/fastplan/internal/config"
	"github.com/danmuck/fastplan/internal/plan"
	"github.com/danmuck/fastplan/internal/sink"
	"github.com/danmuck/fastplan/internal/testutil/testlog"
)

const testTemplates = `<templates>
  <template name="Pair" id="1">
    <int32 name="a"/>
    <string name="name"/>
  </template>
</templates>`

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestResolveRunFlagsOverrideFile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfgPath := writeFixture(t, dir, "fastplan.toml", `
plan_file = "plan.xml"
transport = "udp"
port = 30001
receive_timeout = "1s"
`)

	cmd := &cobra.Command{}
	flags := &runFlags{}
	flags.bind(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"-c", cfgPath, "-n", "30002", "-t", "a.xml,b.xml"}))

	cfg, err := resolveRun(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plan.xml"), cfg.PlanFile)
	assert.Equal(t, sink.TransportUDP, cfg.Transport)
	assert.Equal(t, 30002, cfg.Port)
	assert.Equal(t, time.Second, cfg.ReceiveTimeout)
	assert.Equal(t, []string{"a.xml", "b.xml"}, cfg.TemplateFiles)
	assert.Equal(t, config.DefaultMaxFrameSize, cfg.MaxFrameSize)
}

func TestResolveRunCaptureFlagSelectsTransport(t *testing.T) {
	testlog.Start(t)

	cmd := &cobra.Command{}
	flags := &runFlags{}
	flags.bind(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"-P", "out.pcap", "-n", "1234"}))

	cfg, err := resolveRun(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, sink.TransportCapture, cfg.Transport)
	assert.Equal(t, "out.pcap", cfg.CaptureFile)

	cmd = &cobra.Command{}
	flags = &runFlags{}
	flags.bind(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--transport", "morse"}))
	_, err = resolveRun(cmd, flags)
	assert.ErrorIs(t, err, sink.ErrUnknownTransport)
}

func TestRunCommandASCII(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	tpl := writeFixture(t, dir, "templates.xml", testTemplates)
	planPath := writeFixture(t, dir, "plan.xml", `<plan>
  <message templateID="1"><int32 value="1"/><ascii value="x"/></message>
  <bytemessage>10101010</bytemessage>
</plan>`)

	out, errOut, err := execute(t, "run", "-p", planPath, "-t", tpl)
	require.NoError(t, err)
	assert.Contains(t, errOut, "units=2 sent=2 failed=0")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "10101010", lines[len(lines)-1])
	for _, line := range lines {
		assert.Len(t, line, 8)
	}
	bits, err := plan.ParseBits(out)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), bits[len(bits)-1])
}

func TestRunCommandCaptureAndMetrics(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	tpl := writeFixture(t, dir, "templates.xml", testTemplates)
	planPath := writeFixture(t, dir, "plan.xml", `<plan><message templateID="1" to="10.1.1.1"><int32 value="1"/><ascii value="x"/></message></plan>`)
	pcap := filepath.Join(dir, "out.pcap")
	prom := filepath.Join(dir, "fastplan.prom")

	_, _, err := execute(t, "run", "-p", planPath, "-t", tpl, "-P", pcap, "-n", "30001", "--metrics-file", prom)
	require.NoError(t, err)

	info, err := os.Stat(pcap)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(24+16+28))

	metrics, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "fastplan_runner_frames_total")
}

func TestRunCommandReportsFailures(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	tpl := writeFixture(t, dir, "templates.xml", testTemplates)
	planPath := writeFixture(t, dir, "plan.xml", `<plan>
  <message templateID="1"><int32 value="1"/></message>
  <message templateID="1"><int32 value="2"/><ascii value="ok"/></message>
</plan>`)

	out, errOut, err := execute(t, "validate", "-p", planPath, "-t", tpl)
	assert.True(t, errors.Is(err, ErrUnitsFailed), "got %v", err)
	assert.Contains(t, out, "unit 0 (message)")
	assert.Contains(t, errOut, "sent=1 failed=1")

	_, _, err = execute(t, "run", "-p", filepath.Join(dir, "missing.xml"), "-t", tpl)
	assert.Error(t, err)

	_, _, err = execute(t, "run", "-p", planPath, "-t", tpl, "--transport", "udp")
	var verr *config.ValidationError
	assert.True(t, errors.As(err, &verr), "got %v", err)
}

func TestTemplatesAndInitCommands(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()

	out, _, err := execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "fastplan.toml")

	out, _, err = execute(t, "templates", filepath.Join(dir, "templates.xml"))
	require.NoError(t, err)
	assert.Contains(t, out, "1\tHeartbeat")
	assert.Contains(t, out, "sequence")

	out, _, err = execute(t, "config", "-c", filepath.Join(dir, "fastplan.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "transport")
	assert.Contains(t, out, "pcap")

	_, _, err = execute(t, "validate", "-c", filepath.Join(dir, "fastplan.toml"))
	require.NoError(t, err)

	_, _, err = execute(t, "init", dir)
	assert.Error(t, err, "init refuses to overwrite without --force")
}
