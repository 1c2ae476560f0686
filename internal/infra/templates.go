package infra

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/autoskip/internal/domain"
	"github.com/eliteGoblin/autoskip/internal/vision"
)

// FileTemplateStore implements domain.TemplateStore with images read from disk.
type FileTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template
	logger    *zap.Logger
}

// NewFileTemplateStore creates an empty template store.
func NewFileTemplateStore(logger *zap.Logger) *FileTemplateStore {
	return &FileTemplateStore{
		templates: make(map[string]*domain.Template),
		logger:    logger,
	}
}

// Load decodes path as a grayscale template named name.
// A missing or undecodable file leaves name absent.
func (s *FileTemplateStore) Load(name, path string) error {
	tpl, err := readTemplate(name, path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		delete(s.templates, name)
		return err
	}
	s.templates[name] = tpl

	s.logger.Info("template loaded",
		zap.String("template", name),
		zap.String("path", path),
		zap.Int("width", tpl.Width),
		zap.Int("height", tpl.Height),
		zap.String("dhash", tpl.Fingerprint))
	return nil
}

func readTemplate(name, path string) (*domain.Template, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateMissing, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTemplateCorrupt, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrTemplateCorrupt, path, err)
	}

	gray := vision.ToGray(img)
	size := gray.Bounds().Size()
	if size.X == 0 || size.Y == 0 {
		return nil, fmt.Errorf("%w: %s: empty image", domain.ErrTemplateCorrupt, path)
	}

	// The hash only feeds diagnostics; a failure is not a reason to drop the template.
	hash, _ := vision.Fingerprint(gray)

	return &domain.Template{
		Name:        name,
		Gray:        gray,
		Width:       size.X,
		Height:      size.Y,
		Fingerprint: hash,
	}, nil
}

// Get returns the template stored under name.
func (s *FileTemplateStore) Get(name string) (*domain.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[name]
	return tpl, ok
}

// Names returns the loaded template names in sorted order.
func (s *FileTemplateStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateLoadResult reports what happened to one template at startup.
type TemplateLoadResult struct {
	Name string
	Path string
	Err  error
}

// LoadTemplates loads every name->path pair, in name order, and reports each result.
// Missing files are logged at info level, undecodable ones at warn level.
func LoadTemplates(store domain.TemplateStore, paths map[string]string, logger *zap.Logger) []TemplateLoadResult {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]TemplateLoadResult, 0, len(names))
	for _, name := range names {
		err := store.Load(name, paths[name])
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrTemplateMissing):
			logger.Info("template not found, feature disabled",
				zap.String("template", name),
				zap.String("path", paths[name]))
		default:
			logger.Warn("template unusable, feature disabled",
				zap.String("template", name),
				zap.Error(err))
		}
		results = append(results, TemplateLoadResult{Name: name, Path: paths[name], Err: err})
	}
	return results
}

// Ensure FileTemplateStore implements domain.TemplateStore.
var _ domain.TemplateStore = (*FileTemplateStore)(nil)
