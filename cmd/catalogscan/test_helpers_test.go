package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"catalogscan/internal/testsupport"
)

const fencedReply = "```json\n" + `{
  "title": "Anillo Serpiente",
  "category": "Bijouterie/Anillos",
  "style": "Gótico",
  "material": "Acero quirúrgico",
  "color": "Plateado",
  "gender": "Unisex",
  "short_description": "<ul><li>Acero</li></ul>",
  "long_description": "<p>Serpiente enroscada</p>",
  "tags": "anillo, serpiente"
}` + "\n```"

type fakeOllama struct {
	server *httptest.Server
	chats  atomic.Int64

	mu    sync.Mutex
	model string
}

func (f *fakeOllama) setModel(model string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.model = model
}

func (f *fakeOllama) pulled() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.model
}

func newFakeOllama(t *testing.T, model string) *fakeOllama {
	t.Helper()
	f := &fakeOllama{model: model}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		model := f.pulled()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": model, "model": model}},
		})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, _ *http.Request) {
		f.chats.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": fencedReply},
			"done":    true,
		})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

type cliTestEnv struct {
	baseDir    string
	sourceDir  string
	storePath  string
	exportPath string
	reportPath string
	configPath string
	ollama     *fakeOllama
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("CATALOGSCAN_API_KEY", "")

	env := &cliTestEnv{
		baseDir:    base,
		sourceDir:  filepath.Join(base, "imagenes"),
		storePath:  filepath.Join(base, "out", "productos.json"),
		exportPath: filepath.Join(base, "out", "catalogo.csv"),
		reportPath: filepath.Join(base, "out", "catalogo.html"),
		configPath: filepath.Join(base, "catalogscan.toml"),
		ollama:     newFakeOllama(t, "qwen2.5vl:3b"),
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
source_dir = %q
store_path = %q
export_path = %q
report_path = %q

[inference]
provider = "ollama"
base_url = %q
model = "qwen2.5vl:3b"
timeout_seconds = 10

[logging]
level = "error"
`, env.sourceDir, env.storePath, env.exportPath, env.reportPath, env.ollama.server.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) addImage(t *testing.T, rel string) {
	t.Helper()
	testsupport.WriteImage(t, e.sourceDir, rel)
}

func (e *cliTestEnv) appendConfig(t *testing.T, text string) {
	t.Helper()
	f, err := os.OpenFile(e.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + text + "\n"); err != nil {
		t.Fatal(err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
