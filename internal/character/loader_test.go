package character_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rpstage/internal/character"
)

func newLoader(t *testing.T) (*character.Loader, string) {
	t.Helper()
	dir := t.TempDir()
	return character.NewLoader(dir, zap.NewNop()), dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const liorCard = `basic_info:
  stage_name: "Lior"
speech_patterns:
  angry: "{name}怒道：{msg}"
  neutral: "{name}說：{msg}"
`

func TestResolveRejectsPathSeparators(t *testing.T) {
	t.Parallel()
	loader, _ := newLoader(t)

	for _, name := range []string{"a/b", `a\b`, "../lior", "..\\lior", "/etc/passwd"} {
		t.Run(name, func(t *testing.T) {
			_, err := loader.Resolve(name)
			assert.ErrorIs(t, err, character.ErrInvalidName)
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	t.Parallel()
	loader, _ := newLoader(t)

	_, err := loader.Resolve("ghost")
	assert.ErrorIs(t, err, character.ErrNotFound)
}

func TestResolveExtensionPriority(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yaml"), liorCard)
	writeFile(t, filepath.Join(dir, "lior.yml"), liorCard)

	path, err := loader.Resolve("lior")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "lior.yaml"))
}

func TestResolveLowercasesName(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yml"), liorCard)

	path, err := loader.Resolve("LIOR")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "lior.yml"))
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)

	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.yaml"), liorCard)
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.yaml"), filepath.Join(dir, "sneaky.yaml")))

	_, err := loader.Resolve("sneaky")
	assert.ErrorIs(t, err, character.ErrPathEscape)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yaml"), liorCard)

	def, err := loader.Load("lior")
	require.NoError(t, err)
	assert.Equal(t, "Lior", def.DisplayName())
	assert.Equal(t, character.Templates{"{name}怒道：{msg}"}, def.SpeechPatterns["angry"])
}

func TestLoadDisplayNameFallsBackToRealName(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "rei.yaml"), "basic_info:\n  real_name: \"Rei\"\n")

	def, err := loader.Load("rei")
	require.NoError(t, err)
	assert.Equal(t, "Rei", def.DisplayName())
}

func TestLoadTemplateList(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "kai.yaml"), `basic_info:
  stage_name: "Kai"
speech_patterns:
  happy:
    - "{name}笑了：{msg}"
    - "{name}大笑：{msg}"
`)

	def, err := loader.Load("kai")
	require.NoError(t, err)
	assert.Len(t, def.SpeechPatterns["happy"], 2)
}

func TestLoadMissingDisplayName(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "anon.yaml"), "speech_patterns:\n  neutral: \"{msg}\"\n")

	_, err := loader.Load("anon")
	assert.ErrorIs(t, err, character.ErrMalformed)
}

func TestLoadUnparsableCard(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "broken.yaml"), "basic_info: [unclosed\n")

	_, err := loader.Load("broken")
	assert.ErrorIs(t, err, character.ErrMalformed)
}

func TestLoadMergesModules(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yaml"), `basic_info:
  stage_name: "Lior"
speech_patterns:
  neutral: "{name}說：{msg}"
character_modules:
  mounted_modules:
    - voice
`)
	// The module overrides speech_patterns wholesale: merge is shallow
	// and the later file wins on top-level collision.
	writeFile(t, filepath.Join(dir, "modules", "Module_voice.yaml"), `speech_patterns:
  angry: "{name}吼道：{msg}"
`)

	def, err := loader.Load("lior")
	require.NoError(t, err)
	assert.Equal(t, "Lior", def.DisplayName())
	assert.Equal(t, character.Templates{"{name}吼道：{msg}"}, def.SpeechPatterns["angry"])
	assert.Empty(t, def.SpeechPatterns["neutral"], "shallow merge replaces the whole speech_patterns mapping")
}

func TestLoadModuleOrderLastWins(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yaml"), `basic_info:
  stage_name: "Lior"
character_modules:
  mounted_modules:
    - first
    - second
`)
	writeFile(t, filepath.Join(dir, "modules", "Module_first.yaml"), "speech_patterns:\n  neutral: \"first：{msg}\"\n")
	writeFile(t, filepath.Join(dir, "modules", "Module_second.yaml"), "speech_patterns:\n  neutral: \"second：{msg}\"\n")

	def, err := loader.Load("lior")
	require.NoError(t, err)
	assert.Equal(t, character.Templates{"second：{msg}"}, def.SpeechPatterns["neutral"])
}

func TestLoadUnresolvableModule(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yaml"), `basic_info:
  stage_name: "Lior"
character_modules:
  mounted_modules:
    - missing
`)

	_, err := loader.Load("lior")
	assert.ErrorIs(t, err, character.ErrMalformed)
}

func TestLoadModuleNameWithSeparator(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yaml"), `basic_info:
  stage_name: "Lior"
character_modules:
  mounted_modules:
    - "../escape"
`)

	_, err := loader.Load("lior")
	assert.ErrorIs(t, err, character.ErrMalformed)
}

func TestListRoles(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "lior.yaml"), liorCard)
	writeFile(t, filepath.Join(dir, "erwin.yml"), liorCard)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a card")
	writeFile(t, filepath.Join(dir, "modules", "Module_voice.yaml"), "speech_patterns: {}\n")

	roles, err := loader.ListRoles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lior", "erwin"}, roles)
}

func TestListRolesCaseInsensitiveExtension(t *testing.T) {
	t.Parallel()
	loader, dir := newLoader(t)
	writeFile(t, filepath.Join(dir, "KAI.YML"), liorCard)

	roles, err := loader.ListRoles()
	require.NoError(t, err)
	assert.Equal(t, []string{"KAI"}, roles)
}
