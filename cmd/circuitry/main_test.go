package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "testdata/and.yaml", "--set", "a=1", "--set", "b=true", "--format", "text")
	require.NoError(t, err)

	var outLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "output") {
			outLine = line
		}
	}
	assert.Contains(t, outLine, "out")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(outLine), "ON"), out)
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", "testdata/and.yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph LR"), out)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "testdata/and.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	out, err = execute(t, "validate", "testdata/loop.yaml")
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "error")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "circuitry version "))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "run", "testdata/and.yaml", "--log-level", "loud")
	assert.Error(t, err)
	require.NoError(t, rootCmd.PersistentFlags().Set("log-level", "warn"))
}
