// Package commands_test provides tests for CLI command creation.
package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRowsCommand(t *testing.T) {
	cmd := NewRowsCommand()

	assert.Equal(t, "rows <table>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"conn", "url", "columns", "filter", "any", "sort", "page", "page-size"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewConnCommand(t *testing.T) {
	cmd := NewConnCommand()

	assert.Equal(t, "conn", cmd.Use)
	var subs []string
	for _, c := range cmd.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"add", "list", "rm", "test"}, subs)
}

func TestNewEditCommands(t *testing.T) {
	assert.Equal(t, "insert <table>", NewInsertCommand().Use)
	assert.NotNil(t, NewInsertCommand().Flags().Lookup("set"))

	update := NewUpdateCommand()
	assert.Equal(t, "update <table>", update.Use)
	assert.NotNil(t, update.Flags().Lookup("key"))
	assert.NotNil(t, update.Flags().Lookup("set"))

	del := NewDeleteCommand()
	assert.Equal(t, "delete <table>", del.Use)
	assert.NotEmpty(t, del.Long)

	assert.Equal(t, "fk <table> <column> <value>", NewFKCommand().Use)
}

func TestNewQueryCommand(t *testing.T) {
	cmd := NewQueryCommand()

	assert.Equal(t, "query [SQL]", cmd.Use)
	assert.NotEmpty(t, cmd.Long, "Long should not be empty")
	for _, flag := range []string{"format", "input", "conn", "url"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewSidecarCommand(t *testing.T) {
	cmd := NewSidecarCommand()

	assert.Equal(t, "sidecar", cmd.Use)
	var subs []string
	for _, c := range cmd.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "args"}, subs)
}
