package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"analyze", "history", "prefs", "events"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "ppe-vision", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{
		"source":  "",
		"media":   "image",
		"native":  "",
		"display": "",
		"overlay": "",
		"output":  "table",
		"filter":  "all",
		"elapsed": "0s",
	} {
		flag := analyzeCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "analyze should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, "--%s default", name)
	}
}

func TestHistoryCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range historyCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "clear", "export"} {
		assert.True(t, names[name], "history should have subcommand %q", name)
	}
}

func TestHistoryCommand_Flags(t *testing.T) {
	require.NotNil(t, historyClearCmd.Flags().Lookup("yes"))
	flag := historyExportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "json", flag.DefValue)
}

func TestEventsCommand_Flags(t *testing.T) {
	flag := eventsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "events list should have --limit flag")
	assert.Equal(t, "50", flag.DefValue)
}

func TestPrefsCommand_HasDarkMode(t *testing.T) {
	cmds := prefsCmd.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "dark-mode", cmds[0].Name())
}
