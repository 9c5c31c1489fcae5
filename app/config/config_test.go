package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const minimalConfig = `
persona:
  name: Jane Doe
  summary_path: me/summary.txt
  profile_path: me/linkedin.pdf
openai:
  reply:
    token: ${TEST_OPENAI_TOKEN}
gemini:
  evaluator:
    api_key: gemini-key
`

func TestParse_Defaults(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", cfg.Persona.Name)
	assert.Equal(t, "patent", cfg.Persona.Trigger)
	assert.Equal(t, "sk-test", cfg.OpenAI.Reply.Token)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.Reply.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Reply.Model)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Evaluator.Model)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_MissingToken(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "")

	_, err := Parse([]byte(minimalConfig))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token")
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	data := minimalConfig + `
http:
  addr: 127.0.0.1:9000
  timeout: 5s
log:
  level: debug
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Empty(t, cfg.Gemini.Evaluator.BaseURL)
}

func TestParse_TriggerDisabled(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	cfg, err := Parse([]byte(strings.Replace(minimalConfig,
		"  profile_path: me/linkedin.pdf\n",
		"  profile_path: me/linkedin.pdf\n  trigger: \"\"\n", 1)))
	require.NoError(t, err)

	assert.Empty(t, cfg.Persona.Trigger)
}

func TestParse_TriggerOverride(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	cfg, err := Parse([]byte(strings.Replace(minimalConfig,
		"  profile_path: me/linkedin.pdf\n",
		"  profile_path: me/linkedin.pdf\n  trigger: trademark\n", 1)))
	require.NoError(t, err)

	assert.Equal(t, "trademark", cfg.Persona.Trigger)
}

func TestParse_InvalidLevel(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	_, err := Parse([]byte(minimalConfig + "log:\n  level: loud\n"))
	require.Error(t, err)
}

func TestParse_TelegramNeedsChat(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-test")

	_, err := Parse([]byte(minimalConfig + "log:\n  telegram:\n    token: abc\n"))
	require.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("TEST_OPENAI_TOKEN", "sk-file")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.OpenAI.Reply.Token)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// exampleTags maps dotted yaml paths of every leaf field to its example tag.
func exampleTags(typ reflect.Type, prefix string, out map[string]string) {
	for i := range typ.NumField() {
		field := typ.Field(i)
		name := strings.Split(field.Tag.Get("yaml"), ",")[0]

		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		if field.Type.Kind() == reflect.Struct {
			exampleTags(field.Type, path, out)
			continue
		}

		out[path] = field.Tag.Get("example")
	}
}

func lookup(node map[string]any, path string) (any, bool) {
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		child, ok := node[key].(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}

	value, ok := node[keys[len(keys)-1]]
	return value, ok
}

func TestExampleConfig_MatchesTags(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))

	tags := make(map[string]string)
	exampleTags(reflect.TypeOf(Config{}), "", tags)
	require.NotEmpty(t, tags)

	for path, example := range tags {
		assert.NotEmpty(t, example, "%s has no example tag", path)

		value, ok := lookup(raw, path)
		if assert.True(t, ok, "%s is missing from config.example.yaml", path) {
			assert.Equal(t, example, fmt.Sprint(value), path)
		}
	}
}

func TestExampleConfig_Parses(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-example")
	t.Setenv("GOOGLE_API_KEY", "gemini-example")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sk-example", cfg.OpenAI.Reply.Token)
	assert.Equal(t, "gemini-example", cfg.Gemini.Evaluator.APIKey)
	assert.Equal(t, DefaultTrigger, cfg.Persona.Trigger)
	assert.Equal(t, 60*time.Second, cfg.HTTP.Timeout)
}
