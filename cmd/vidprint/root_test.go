package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"add", "search", "compare", "stats", "delete", "batch", "watch"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommandHelpWithoutArgs(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{})
	require.NoError(t, root.Execute())
}

func TestDefaultRunID(t *testing.T) {
	assert.Equal(t, "videos", defaultRunID("/data/videos.csv"))
	assert.Equal(t, "batch-01", defaultRunID("batch-01.csv"))
	assert.Equal(t, "plain", defaultRunID("plain"))
}
