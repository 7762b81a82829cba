package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/dataroom-assistant/internal/config"
)

const modelAnswer = `{"answer":"The contracted capacity is 120 MW.","citations":[{"filename":"ppa.txt","page_number":1,"text":"120 MW AC"}]}`

// newFakeOllama answers every embed with the same vector and every generate
// with modelAnswer.
func newFakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/embed":
			vectors := make([][]float32, len(req.Input))
			for i := range vectors {
				vectors[i] = []float32{1, 0, 0}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
		case "/api/generate":
			_ = json.NewEncoder(w).Encode(map[string]any{"response": modelAnswer, "prompt_eval_count": 12, "eval_count": 8})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(ollamaURL string) config.Config {
	return config.Config{
		LLMProvider:    config.ProviderOllama,
		OllamaURL:      ollamaURL,
		ChunkSize:      1000,
		ChunkOverlap:   200,
		RAGTopK:        5,
		RAGMaxContext:  12000,
		VectorMetric:   "l2",
		GenTopP:        0.9,
		APIMaxUploadMB: 50,
		HistoryMaxLogs: 10,
	}
}

// setupCLI points the commands at cfg and resets flag state between runs.
func setupCLI(t *testing.T, cfg config.Config) *bytes.Buffer {
	t.Helper()
	original := loadConfig
	loadConfig = func() config.Config { return cfg }
	askFiles, askFormat, mcpFiles, logLevel = nil, "text", nil, "error"

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	t.Cleanup(func() {
		loadConfig = original
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return buf
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "dataroom", rootCmd.Use)
	for _, name := range []string{"ask", "chunk", "mcp", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestVersionCmd_Executes(t *testing.T) {
	buf := setupCLI(t, config.Config{})
	original := version
	version = "1.2.3"
	defer func() { version = original }()

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "dataroom version 1.2.3")
}

func TestChunkCmd_PrintsChunksWithoutModel(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.ChunkSize = 40
	cfg.ChunkOverlap = 10
	buf := setupCLI(t, cfg)
	path := writeFile(t, "notes.txt", "The project interconnects at the Red Mesa substation. The lease term is thirty five years.")

	rootCmd.SetArgs([]string{"chunk", path})
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "1 pages")
	assert.Contains(t, out, "[0] page 1")
	assert.Contains(t, out, "[1] page 1")
}

func TestChunkCmd_RejectsUnsupportedFormat(t *testing.T) {
	setupCLI(t, testConfig(""))
	path := writeFile(t, "model.xlsx", "not really")

	rootCmd.SetArgs([]string{"chunk", path})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestChunkCmd_RejectsBadChunking(t *testing.T) {
	cfg := testConfig("")
	cfg.ChunkOverlap = cfg.ChunkSize
	setupCLI(t, cfg)

	rootCmd.SetArgs([]string{"chunk", writeFile(t, "a.txt", "text")})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	setupCLI(t, testConfig(""))
	rootCmd.SetArgs([]string{"ask"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_TextOutputListsSources(t *testing.T) {
	srv := newFakeOllama(t)
	buf := setupCLI(t, testConfig(srv.URL))
	path := writeFile(t, "ppa.txt", "The PPA covers 120 MW AC of solar capacity delivered to the utility.")

	rootCmd.SetArgs([]string{"ask", "--file", path, "What is the capacity?"})
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "The contracted capacity is 120 MW.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] ppa.txt, page 1")
}

func TestAskCmd_FileNameWithComma(t *testing.T) {
	srv := newFakeOllama(t)
	buf := setupCLI(t, testConfig(srv.URL))
	path := writeFile(t, "PPA, signed.txt", "The PPA covers 120 MW AC of solar capacity.")

	rootCmd.SetArgs([]string{"ask", "-f", path, "What is the capacity?"})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, []string{path}, askFiles)
	assert.Contains(t, buf.String(), "[1] PPA, signed.txt, page 1")
}

func TestAskCmd_JSONOutput(t *testing.T) {
	srv := newFakeOllama(t)
	buf := setupCLI(t, testConfig(srv.URL))
	path := writeFile(t, "ppa.txt", "The PPA covers 120 MW AC of solar capacity.")

	rootCmd.SetArgs([]string{"ask", "-f", path, "--format", "json", "What is the capacity?"})
	require.NoError(t, rootCmd.Execute())

	var out []askOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "What is the capacity?", out[0].Question)
	assert.NotEmpty(t, out[0].QueryID)
	require.Len(t, out[0].Citations, 1)
	assert.Equal(t, 1, out[0].Citations[0].PageNumber)
}

func TestAskCmd_YAMLOutput(t *testing.T) {
	srv := newFakeOllama(t)
	buf := setupCLI(t, testConfig(srv.URL))
	path := writeFile(t, "ppa.txt", "The PPA covers 120 MW AC of solar capacity.")

	rootCmd.SetArgs([]string{"ask", "-f", path, "--format", "yaml", "What is the capacity?", "Who is the offtaker?"})
	require.NoError(t, rootCmd.Execute())

	var out []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "The contracted capacity is 120 MW.", out[0]["answer"])
	assert.Equal(t, "Who is the offtaker?", out[1]["question"])
}

func TestAskCmd_WithoutFilesReportsNoDocuments(t *testing.T) {
	srv := newFakeOllama(t)
	buf := setupCLI(t, testConfig(srv.URL))

	rootCmd.SetArgs([]string{"ask", "Anything?"})
	require.NoError(t, rootCmd.Execute())
	assert.NotContains(t, buf.String(), "Sources:")
	assert.NotEmpty(t, buf.String())
}

func TestAskCmd_RejectsUnknownFormat(t *testing.T) {
	setupCLI(t, testConfig(""))
	rootCmd.SetArgs([]string{"ask", "--format", "xml", "q"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestMCPServeCmd_HasFileFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("file")
	require.NotNil(t, flag)
	assert.Equal(t, "f", flag.Shorthand)
}

func TestMCPServeCmd_FailsOnMissingFile(t *testing.T) {
	srv := newFakeOllama(t)
	setupCLI(t, testConfig(srv.URL))

	rootCmd.SetArgs([]string{"mcp", "serve", "--file", filepath.Join(t.TempDir(), "missing.pdf")})
	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMCPServeCmd_KeepsCommaInFileName(t *testing.T) {
	srv := newFakeOllama(t)
	setupCLI(t, testConfig(srv.URL))
	missing := filepath.Join(t.TempDir(), "lease, amended.pdf")

	rootCmd.SetArgs([]string{"mcp", "serve", "-f", missing})
	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, []string{missing}, mcpFiles)
}

func TestPreviewTruncates(t *testing.T) {
	assert.Equal(t, "a b", preview("  a \n b "))
	long := preview(string(bytes.Repeat([]byte("x"), previewRunes+5)))
	assert.Len(t, []rune(long), previewRunes+3)
}
