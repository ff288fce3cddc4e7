package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"newton/internal/workflowgraph/state"
)

// LoadedDocument pairs a parsed WorkflowDocument with the bytes it was
// parsed from, so callers can compute a stable workflow hash for
// checkpoint comparison (WFG-CKPT-001) without re-reading the file.
type LoadedDocument struct {
	FilePath string
	Raw      []byte
	Hash     string
	Doc      *state.WorkflowDocument
}

// Load reads and parses a single workflow graph file (.workflow_graph.yaml,
// .workflow_graph.yml, or .workflow_graph.json) but does not run static
// validation — callers should follow with Validate.
func Load(filePath string) (*LoadedDocument, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, state.WrapError(state.CodeDocumentParse, state.CategoryIO,
			fmt.Sprintf("failed to read workflow graph %s", filePath), err)
	}
	return loadBytes(filePath, content)
}

func loadBytes(filePath string, content []byte) (*LoadedDocument, error) {
	var dataMap map[string]interface{}

	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(content, &dataMap); err != nil {
			return nil, state.WrapError(state.CodeDocumentParse, state.CategorySerialization,
				fmt.Sprintf("failed to parse JSON workflow graph %s", filePath), err)
		}
	} else {
		var yamlData interface{}
		if err := yaml.Unmarshal(content, &yamlData); err != nil {
			return nil, state.WrapError(state.CodeDocumentParse, state.CategorySerialization,
				fmt.Sprintf("failed to parse YAML workflow graph %s", filePath), err)
		}
		converted := convertYAMLToJSON(yamlData)
		var ok bool
		dataMap, ok = converted.(map[string]interface{})
		if !ok {
			return nil, state.NewError(state.CodeDocumentParse, state.CategorySerialization,
				fmt.Sprintf("workflow graph %s must decode to an object at the top level", filePath))
		}
	}

	normalizedJSON, err := json.Marshal(dataMap)
	if err != nil {
		return nil, state.WrapError(state.CodeDocumentParse, state.CategorySerialization,
			fmt.Sprintf("failed to re-encode workflow graph %s", filePath), err)
	}

	var doc state.WorkflowDocument
	if err := json.Unmarshal(normalizedJSON, &doc); err != nil {
		return nil, state.WrapError(state.CodeDocumentParse, state.CategorySerialization,
			fmt.Sprintf("failed to decode workflow graph %s into the document schema", filePath), err)
	}

	return &LoadedDocument{
		FilePath: filePath,
		Raw:      content,
		Hash:     HashDocument(content),
		Doc:      &doc,
	}, nil
}

// LoadDir globs *.workflow_graph.{yaml,yml,json} under dir and loads each,
// collecting per-file errors rather than aborting on the first failure.
func LoadDir(dir string) ([]*LoadedDocument, map[string]error, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil, nil
	}

	var allFiles []string
	for _, pattern := range []string{"*.workflow_graph.yaml", "*.workflow_graph.yml", "*.workflow_graph.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, nil, state.WrapError(state.CodeDocumentParse, state.CategoryIO,
				fmt.Sprintf("failed to scan %s for workflow graphs", dir), err)
		}
		allFiles = append(allFiles, matches...)
	}

	var docs []*LoadedDocument
	errs := map[string]error{}
	for _, f := range allFiles {
		ld, err := Load(f)
		if err != nil {
			errs[f] = err
			continue
		}
		docs = append(docs, ld)
	}
	return docs, errs, nil
}

// HashDocument computes the SHA-256 hex digest of a workflow file's bytes,
// used for WFG-CKPT-001 comparison between a resumed execution's stored
// hash and the on-disk document.
func HashDocument(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func convertYAMLToJSON(input interface{}) interface{} {
	switch v := input.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for key, val := range v {
			result[key] = convertYAMLToJSON(val)
		}
		return result
	case map[interface{}]interface{}:
		result := make(map[string]interface{})
		for key, val := range v {
			strKey := fmt.Sprintf("%v", key)
			result[strKey] = convertYAMLToJSON(val)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			result[i] = convertYAMLToJSON(val)
		}
		return result
	default:
		return v
	}
}
