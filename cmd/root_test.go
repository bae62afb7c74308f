package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"serve", "migrate", "projects", "checklist", "packs", "taxonomy"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "grc-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestProjectsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range projectsCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "show", "create", "delete", "verify"} {
		assert.True(t, names[name], "projects should have subcommand %q", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestProjectsCreateCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "actor"} {
		assert.NotNil(t, projectsCreateCmd.Flags().Lookup(name), "projects create should have --%s flag", name)
	}
	assert.NotNil(t, projectsDeleteCmd.Flags().Lookup("actor"))
	assert.NotNil(t, projectsVerifyCmd.Flags().Lookup("strict"))
}

func TestChecklistExportCommand_Flags(t *testing.T) {
	flag := checklistExportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "csv", flag.DefValue)
	assert.NotNil(t, checklistExportCmd.Flags().Lookup("out"))
}

func TestRootCommand_LogLevelFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	assert.Empty(t, flag.DefValue)
	assert.True(t, rootCmd.SilenceUsage)
}
