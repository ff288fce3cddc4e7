// Package artifact implements the local-disk artifact store described in
// §4.5: inline-vs-artifact output routing, path-safe atomic writes, and
// LRU capacity enforcement driven by a live set of checkpoint-referenced
// paths.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"newton/internal/workflowgraph/state"
)

// taskIDPattern re-checks the §3 identifier rule at the artifact
// boundary, independent of any validation already done by the document
// loader.
var taskIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Store routes a task's output either inline or to an on-disk artifact
// file, depending on its serialized size against the configured
// thresholds, and enforces a total-bytes quota via LRU eviction.
type Store struct {
	root             string
	maxInlineBytes   int64
	maxArtifactBytes int64
	maxTotalBytes    int64
	retentionHours   int64

	// listCache memoizes the full artifact-tree walk under a single key so
	// a burst of Route calls within one scheduler tick does not re-walk the
	// filesystem on every capacity check. Invalidated on any write/delete.
	listCache *lru.Cache[string, []artifactFileInfo]
}

const listCacheKey = "listing"

// NewStore resolves cfg.BasePath to an absolute root (joining it onto
// workspacePath when relative) and returns a Store configured with its
// thresholds.
func NewStore(workspacePath string, cfg state.ArtifactStorageConfig) *Store {
	root := cfg.BasePath
	if root == "" {
		root = filepath.Join(workspacePath, ".newton", "artifacts")
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(workspacePath, root)
	}

	maxInline := cfg.MaxInlineBytes
	if maxInline == 0 {
		maxInline = 64 * 1024
	}
	maxArtifact := cfg.MaxArtifactBytes
	if maxArtifact == 0 {
		maxArtifact = 100 * 1024 * 1024
	}
	maxTotal := cfg.MaxTotalBytes
	if maxTotal == 0 {
		maxTotal = 1 << 30
	}

	cache, _ := lru.New[string, []artifactFileInfo](1)

	return &Store{
		root:             root,
		maxInlineBytes:   maxInline,
		maxArtifactBytes: maxArtifact,
		maxTotalBytes:    maxTotal,
		retentionHours:   cfg.RetentionHours,
		listCache:        cache,
	}
}

// Root returns the resolved absolute artifact root.
func (s *Store) Root() string { return s.root }

// Route serializes value and, depending on its size against the
// configured thresholds, returns either an inline OutputRef or writes it
// to <root>/workflows/<executionID>/task/<taskID>/<runSeq>/output.json and
// returns an artifact OutputRef.
func (s *Store) Route(executionID, taskID string, runSeq int, value interface{}, liveSet map[string]bool) (state.OutputRef, error) {
	if !taskIDPattern.MatchString(taskID) {
		return state.OutputRef{}, state.NewError(state.CodeArtPathEscape, state.CategoryArtifact,
			fmt.Sprintf("task id %q is not a valid artifact path component", taskID))
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return state.OutputRef{}, state.WrapError(state.CodeArtPathEscape, state.CategorySerialization,
			"failed to serialize task output", err)
	}

	if int64(len(raw)) <= s.maxInlineBytes {
		return state.InlineOutput(value), nil
	}
	if int64(len(raw)) > s.maxArtifactBytes {
		return state.OutputRef{}, state.NewError(state.CodeArtOverSize, state.CategoryArtifact,
			fmt.Sprintf("task %q output of %d bytes exceeds max_artifact_bytes %d", taskID, len(raw), s.maxArtifactBytes))
	}

	relDir := filepath.Join("workflows", executionID, "task", taskID, fmt.Sprintf("%d", runSeq))
	relPath := filepath.Join(relDir, "output.json")
	absPath := filepath.Join(s.root, relPath)

	cleanRoot := filepath.Clean(s.root)
	if !isWithinRoot(cleanRoot, absPath) {
		return state.OutputRef{}, state.NewError(state.CodeArtPathEscape, state.CategoryArtifact,
			fmt.Sprintf("constructed artifact path %q escapes artifact root %q", absPath, cleanRoot))
	}

	if err := s.ensureCapacity(int64(len(raw)), liveSet); err != nil {
		return state.OutputRef{}, err
	}

	if err := writeAtomic(absPath, raw); err != nil {
		return state.OutputRef{}, err
	}
	s.listCache.Remove(listCacheKey)

	sum := sha256.Sum256(raw)
	return state.ArtifactOutput(relPath, int64(len(raw)), hex.EncodeToString(sum[:])), nil
}

func isWithinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !hasParentPrefix(rel)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == "../" || rel == ".."
}

// writeAtomic creates absPath's parent directories, writes to a sibling
// temp file, and renames it into place so a crash mid-write never leaves
// a partial output.json visible to readers.
func writeAtomic(absPath string, data []byte) error {
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			fmt.Sprintf("failed to create artifact directory %q", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			"failed to create temp artifact file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			"failed to write temp artifact file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			"failed to close temp artifact file", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		os.Remove(tmpName)
		return state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			"failed to rename temp artifact file into place", err)
	}
	return nil
}

// ensureCapacity computes current bytes under root and, if writing
// upcoming bytes would exceed maxTotalBytes, evicts the least-recently
// modified non-live files until the deficit is covered. liveSet holds
// artifact-root-relative paths that must never be evicted.
func (s *Store) ensureCapacity(upcoming int64, liveSet map[string]bool) error {
	entries, total, err := s.listArtifactFiles()
	if err != nil {
		return err
	}
	if total+upcoming <= s.maxTotalBytes {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})

	deficit := total + upcoming - s.maxTotalBytes
	evicted := false
	for _, e := range entries {
		if deficit <= 0 {
			break
		}
		if liveSet[e.relPath] {
			continue
		}
		if err := os.Remove(e.absPath); err != nil && !os.IsNotExist(err) {
			continue
		}
		evicted = true
		deficit -= e.size
	}
	if evicted {
		s.listCache.Remove(listCacheKey)
	}

	if deficit > 0 {
		return state.NewError(state.CodeArtQuotaExceeded, state.CategoryArtifact,
			fmt.Sprintf("insufficient capacity even after LRU cleanup: %d bytes still over quota", deficit))
	}
	return nil
}

type artifactFileInfo struct {
	relPath string
	absPath string
	size    int64
	modTime time.Time
}

func (s *Store) listArtifactFiles() ([]artifactFileInfo, int64, error) {
	if cached, ok := s.listCache.Get(listCacheKey); ok {
		var total int64
		for _, e := range cached {
			total += e.size
		}
		return cached, total, nil
	}

	var entries []artifactFileInfo
	var total int64

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		entries = append(entries, artifactFileInfo{
			relPath: rel,
			absPath: path,
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, state.WrapError(state.CodeArtQuotaExceeded, state.CategoryIO,
			"failed to list artifact store contents", err)
	}
	s.listCache.Add(listCacheKey, entries)
	return entries, total, nil
}

// CleanArtifacts deletes non-live files under root older than olderThan,
// for periodic/external maintenance outside the write path.
func (s *Store) CleanArtifacts(olderThan time.Duration, liveSet map[string]bool) error {
	entries, _, err := s.listArtifactFiles()
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-olderThan)
	removed := false
	for _, e := range entries {
		if liveSet[e.relPath] {
			continue
		}
		if e.modTime.After(cutoff) {
			continue
		}
		if err := os.Remove(e.absPath); err == nil {
			removed = true
		}
	}
	if removed {
		s.listCache.Remove(listCacheKey)
	}
	return nil
}
