package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description shipped alongside the binary,
// in YAML as authored and converted to JSON on demand. The file is read
// once and cached; the spec does not change while the server runs.
type OpenAPIHandler struct {
	specPath string
	baseDir  string

	once     sync.Once
	yamlData []byte
	jsonData []byte
	loadErr  error
}

// NewOpenAPIHandler creates a handler for the spec at specPath. The path is
// resolved to an absolute location up front so a crafted value cannot
// escape the spec directory later.
func NewOpenAPIHandler(specPath string) *OpenAPIHandler {
	absPath, _ := filepath.Abs(specPath)
	baseDir, _ := filepath.Abs(filepath.Dir(specPath))
	return &OpenAPIHandler{
		specPath: absPath,
		baseDir:  baseDir,
	}
}

// RegisterRoutes registers the spec endpoints on the router.
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

// load reads and converts the spec exactly once.
func (h *OpenAPIHandler) load() {
	h.once.Do(func() {
		rel, err := filepath.Rel(h.baseDir, filepath.Clean(h.specPath))
		if err != nil || rel == ".." || filepath.IsAbs(rel) || (len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)) {
			h.loadErr = os.ErrPermission
			return
		}

		data, err := os.ReadFile(h.specPath)
		if err != nil {
			h.loadErr = err
			return
		}
		h.yamlData = data

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			h.loadErr = err
			return
		}
		h.jsonData, h.loadErr = json.Marshal(doc)
	})
}

// ServeYAML serves the spec as authored.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	h.load()
	if h.loadErr != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	if _, err := w.Write(h.yamlData); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}

// ServeJSON serves the spec converted to JSON.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	h.load()
	if h.loadErr != nil {
		http.Error(w, "OpenAPI specification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(h.jsonData); err != nil {
		http.Error(w, "Failed to write response", http.StatusInternalServerError)
	}
}
