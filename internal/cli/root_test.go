package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3")
	require.NotNil(t, cmd)
	assert.Equal(t, "eagerorm", cmd.Use)

	for _, name := range []string{"gen", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "eagerorm 1.2.3\n", out.String())
}

func TestGenCommandFlags(t *testing.T) {
	cmd := NewGenCommand()

	typeFlag := cmd.Flags().Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "t", typeFlag.Shorthand)

	require.NotNil(t, cmd.Flags().Lookup("table"))
	require.NotNil(t, cmd.Flags().Lookup("file"))
}

const modelSource = `package model

type UserProfile struct {
	ID     int    ` + "`db:\"id,primaryKey\"`" + `
	UserID int    ` + "`db:\"user_id\"`" + `
	Bio    string ` + "`db:\"bio\"`" + `
}
`

func TestGenCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "model.go")
	require.NoError(t, os.WriteFile(src, []byte(modelSource), 0o600))

	cmd := NewRootCommand("dev")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"gen", "--type", "UserProfile", "--file", src})
	require.NoError(t, cmd.Execute())

	outPath := filepath.Join(dir, "userprofile_def_gen.go")
	assert.Contains(t, out.String(), outPath)

	generated, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(generated), `orm.ResolveTableName[UserProfile]("user_profiles")`),
		"table name inferred from the type:\n%s", generated)
}

func TestGenCommandTableOverride(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "model.go")
	require.NoError(t, os.WriteFile(src, []byte(modelSource), 0o600))

	outPath, err := runGen(&GenOptions{Type: "UserProfile", Table: "profiles", File: src})
	require.NoError(t, err)

	generated, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(generated), `orm.ResolveTableName[UserProfile]("profiles")`)
}

func TestGenCommandErrors(t *testing.T) {
	_, err := runGen(&GenOptions{Type: "User"})
	require.Error(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "model.go")
	require.NoError(t, os.WriteFile(src, []byte(modelSource), 0o600))

	_, err = runGen(&GenOptions{Type: "Missing", File: src})
	require.Error(t, err)
}
