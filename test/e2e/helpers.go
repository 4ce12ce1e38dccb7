//go:build e2e

// Package e2e exercises the full recall deployment surface: the HTTP API of
// an in-process server, the recall and recalld binaries built from this
// tree, and the snapshot commands, all backed by the file store and a local
// embedding stub so no external provider is needed.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/require"

	"github.com/mementolab/recall/internal/api/handlers"
	"github.com/mementolab/recall/internal/openai"
	"github.com/mementolab/recall/internal/repository"
	"github.com/mementolab/recall/internal/server"
	"github.com/mementolab/recall/internal/service"
)

// embeddingDims is the stub vector width. Real providers use 1536; the
// hashing stub only needs enough buckets to keep unrelated words apart.
const embeddingDims = 64

const apiPrefix = "/api/v1"

// E2ETestEnv holds the pieces of a running test deployment.
type E2ETestEnv struct {
	T   *testing.T
	Ctx context.Context

	// DataFile backs the server's file store.
	DataFile  string
	APIToken  string
	ServerURL string
	EmbedStub *httptest.Server

	// BinaryDir holds the recall and recalld binaries after BuildBinaries.
	BinaryDir string
	// ConfigHome isolates the CLI's global config from the real user's.
	ConfigHome string

	HTTPClient   *http.Client
	serverCloser func()
}

// SetupE2EEnv starts the embedding stub and an in-process API server on a
// free port, token-guarded so auth paths are exercised too.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	t.Helper()

	env := &E2ETestEnv{
		T:          t,
		Ctx:        context.Background(),
		DataFile:   filepath.Join(t.TempDir(), "knowledge.jsonl"),
		APIToken:   "e2e-secret-token",
		EmbedStub:  startEmbeddingStub(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	env.ServerURL, env.serverCloser = startServer(t, env.DataFile, env.EmbedStub.URL, env.APIToken)
	waitForServer(t, env.ServerURL)

	return env
}

// Cleanup stops the server, the embedding stub, and removes built binaries.
func (e *E2ETestEnv) Cleanup() {
	if e.serverCloser != nil {
		e.serverCloser()
	}
	if e.EmbedStub != nil {
		e.EmbedStub.Close()
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries compiles recall and recalld into a temp dir so CLI tests run
// the real executables.
func (e *E2ETestEnv) BuildBinaries() {
	e.T.Helper()
	if e.BinaryDir != "" {
		return
	}

	dir, err := os.MkdirTemp("", "recall-e2e-bin-*")
	require.NoError(e.T, err)
	e.BinaryDir = dir
	e.ConfigHome = filepath.Join(dir, "config")
	require.NoError(e.T, os.MkdirAll(e.ConfigHome, 0o755))

	for _, name := range []string{"recall", "recalld"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(dir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if output, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, output)
		}
	}
}

// RunRecall executes the recall binary against the test server, passing the
// server URL and token through the environment the way users script it.
func (e *E2ETestEnv) RunRecall(args ...string) (string, error) {
	return e.RunRecallWithInput("", args...)
}

// RunRecallWithInput is RunRecall with text piped to stdin.
func (e *E2ETestEnv) RunRecallWithInput(input string, args ...string) (string, error) {
	e.T.Helper()
	require.NotEmpty(e.T, e.BinaryDir, "call BuildBinaries before RunRecall")

	cmd := exec.Command(filepath.Join(e.BinaryDir, "recall"), args...)
	cmd.Env = append(os.Environ(),
		"RECALL_SERVER_URL="+e.ServerURL,
		"RECALL_API_TOKEN="+e.APIToken,
		// Keep `recall init` away from the real ~/.config.
		"XDG_CONFIG_HOME="+e.ConfigHome,
	)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	output, err := cmd.CombinedOutput()
	return string(output), err
}

// RunRecalld executes the recalld binary with the file backend pointed at
// dataFile. Snapshot commands open the store directly instead of going
// through the API.
func (e *E2ETestEnv) RunRecalld(dataFile string, args ...string) (string, error) {
	e.T.Helper()
	require.NotEmpty(e.T, e.BinaryDir, "call BuildBinaries before RunRecalld")

	cmd := exec.Command(filepath.Join(e.BinaryDir, "recalld"), args...)
	cmd.Env = append(os.Environ(),
		"RECALL_STORE_BACKEND=file",
		"RECALL_DATA_FILE="+dataFile,
		fmt.Sprintf("RECALL_EMBEDDING_DIMENSIONS=%d", embeddingDims),
	)

	output, err := cmd.CombinedOutput()
	return string(output), err
}

// APIResponse mirrors the server's response envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

func (e *E2ETestEnv) Get(path, token string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, token)
}

func (e *E2ETestEnv) Post(path string, body interface{}, token string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, token)
}

func (e *E2ETestEnv) Delete(path, token string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, token)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, token string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ServerURL+apiPrefix+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("status %d: unexpected body %q", resp.StatusCode, respBody)
	}
	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("status %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// startServer wires the file store, the stubbed embedding client, and the
// router exactly the way `recalld serve` does, then listens on a free port.
func startServer(t *testing.T, dataFile, embedBaseURL, apiToken string) (string, func()) {
	t.Helper()

	repo, err := repository.NewFileRepository(dataFile, embeddingDims)
	require.NoError(t, err)

	embedder := openai.NewClientWithConfig(openai.Config{
		APIKey:              "e2e-test-key",
		BaseURL:             embedBaseURL,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: embeddingDims,
	})

	svc := service.NewKnowledgeService(repo, embedder, service.KnowledgeConfig{
		Chunk:              service.ChunkConfig{Size: 800, Overlap: 100},
		MaxContentChars:    2000,
		DuplicateThreshold: 0.8,
		SearchLimit:        5,
	})

	router := server.NewRouter(server.RouterConfig{
		APIToken:           apiToken,
		KnowledgeHandler:   handlers.NewKnowledgeHandler(svc),
		SearchHandler:      handlers.NewSearchHandler(svc),
		MaintenanceHandler: handlers.NewMaintenanceHandler(svc),
	})

	port := getFreePort(t)
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("e2e server error: %v", err)
		}
	}()

	closer := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = repo.Close()
	}

	return fmt.Sprintf("http://127.0.0.1:%d", port), closer
}

func waitForServer(t *testing.T, serverURL string) {
	t.Helper()

	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server did not become ready within 15s")
}

func getFreePort(t *testing.T) int {
	t.Helper()

	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	l, err := net.ListenTCP("tcp", addr)
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startEmbeddingStub serves an OpenAI-compatible /embeddings endpoint that
// returns deterministic hashed-word vectors, so tests get stable similarity
// rankings without a real provider.
func startEmbeddingStub() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input json.RawMessage `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// The client sends a batch of strings; accept a bare string too.
		var inputs []string
		if err := json.Unmarshal(req.Input, &inputs); err != nil {
			var single string
			if err := json.Unmarshal(req.Input, &single); err != nil {
				http.Error(w, "unsupported input shape", http.StatusBadRequest)
				return
			}
			inputs = []string{single}
		}

		type embeddingData struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Object string          `json:"object"`
			Data   []embeddingData `json:"data"`
			Model  string          `json:"model"`
		}{Object: "list", Model: "text-embedding-3-small"}

		for i, text := range inputs {
			resp.Data = append(resp.Data, embeddingData{
				Object:    "embedding",
				Index:     i,
				Embedding: hashingVector(text),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return httptest.NewServer(mux)
}

// hashingVector folds each word of text into one of embeddingDims buckets
// and L2-normalizes the counts. Texts sharing vocabulary land close together
// in cosine space, disjoint texts land near zero, and the mapping never
// changes between runs.
func hashingVector(text string) []float32 {
	counts := make([]float64, embeddingDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		counts[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, c := range counts {
		norm += c * c
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, embeddingDims)
	if norm == 0 {
		return vec
	}
	for i, c := range counts {
		vec[i] = float32(c / norm)
	}
	return vec
}
