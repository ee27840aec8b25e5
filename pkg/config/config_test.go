package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "cubesat")
	path := writeFile(t, "name: ${SAMPLE_NAME}\n")

	s := sample{Count: 3}
	require.NoError(t, Load(path, &s))
	assert.Equal(t, "cubesat", s.Name)
	assert.Equal(t, 3, s.Count, "absent fields keep their defaults")
}

func TestLoad_RunsValidator(t *testing.T) {
	path := writeFile(t, "count: -1\n")
	var s sample
	err := Load(path, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	assert.ErrorIs(t, Load(filepath.Join(t.TempDir(), "nope.yaml"), &s), os.ErrNotExist)
}

func TestDecode_Malformed(t *testing.T) {
	var s sample
	err := Decode([]byte("name: [unterminated"), "inline", &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config inline")
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	fallback := writeFile(t, "name: fallback\n")
	var s sample
	require.NoError(t, LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), fallback, &s))
	assert.Equal(t, "fallback", s.Name)

	assert.Error(t, LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &s))
}

func TestMustLoad_Panics(t *testing.T) {
	var s sample
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml"), &s) })
}
