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
	expected := []string{"compare", "cover", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "delivery-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCompareCommand_Flags(t *testing.T) {
	for _, name := range []string{"katapult", "spida", "threshold", "output", "format", "issues-only"} {
		require.NotNil(t, compareCmd.Flags().Lookup(name), "compare command should have --%s flag", name)
	}

	flag := compareCmd.Flags().Lookup("threshold")
	assert.Equal(t, "-1", flag.DefValue, "negative default means the config value wins")
}

func TestCoverCommand_Flags(t *testing.T) {
	for _, name := range []string{"spida", "output", "no-geocode"} {
		require.NotNil(t, coverCmd.Flags().Lookup(name), "cover command should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
