package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/voxnotes/pkg/core"
)

const (
	// DefaultPrefsFile holds user preferences next to the notes.
	DefaultPrefsFile = "prefs.yaml"
	// DefaultLanguage is the recognition language when none is configured.
	DefaultLanguage = "de-DE"
	// CredentialsEnv names a credentials file that overrides the preferences.
	CredentialsEnv = "VOXNOTES_CREDENTIALS_FILE"
)

// Prefs is the preferences document.
type Prefs struct {
	Categories            []string `yaml:"categories,omitempty"`
	TranscriptionLanguage string   `yaml:"transcription_language,omitempty"`
	// Credentials is an inline service-account key.
	Credentials     string `yaml:"google_cloud_credentials,omitempty"`
	CredentialsFile string `yaml:"google_cloud_credentials_file,omitempty"`
}

// PrefsStore reads and writes prefs.yaml. It implements core.CategoryRepository
// and core.SettingsSource.
type PrefsStore struct {
	path   string
	logger *slog.Logger
	getenv func(string) string

	mu       sync.Mutex
	watching bool
}

// NewPrefsStore creates a store for the preferences file at path.
func NewPrefsStore(path string, logger *slog.Logger) *PrefsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrefsStore{path: path, logger: logger, getenv: os.Getenv}
}

// Path returns the preferences file.
func (p *PrefsStore) Path() string {
	return p.path
}

// Read returns the current preferences. A missing file yields zero Prefs.
func (p *PrefsStore) Read() (Prefs, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read()
}

func (p *PrefsStore) read() (Prefs, error) {
	var prefs Prefs
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return prefs, fmt.Errorf("failed to parse %s: %w", p.path, err)
	}
	return prefs, nil
}

// Update applies fn to the preferences and writes them back atomically.
func (p *PrefsStore) Update(fn func(*Prefs) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefs, err := p.read()
	if err != nil {
		return err
	}
	if err := fn(&prefs); err != nil {
		return err
	}

	data, err := yaml.Marshal(&prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	// Inline credentials are secrets.
	_, err = replaceFile(p.path, data, 0600)
	return err
}

// LoadCategories implements core.CategoryRepository.
func (p *PrefsStore) LoadCategories(ctx context.Context) ([]string, error) {
	prefs, err := p.Read()
	if err != nil {
		return nil, err
	}
	return prefs.Categories, nil
}

// SaveCategories implements core.CategoryRepository.
func (p *PrefsStore) SaveCategories(ctx context.Context, categories []string) error {
	return p.Update(func(prefs *Prefs) error {
		prefs.Categories = categories
		return nil
	})
}

// SetLanguage stores the recognition language, e.g. "en-US".
func (p *PrefsStore) SetLanguage(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("language code cannot be empty")
	}
	return p.Update(func(prefs *Prefs) error {
		prefs.TranscriptionLanguage = code
		return nil
	})
}

// SetCredentialsFile points the recognizer at a service-account key file.
// An empty path clears the setting.
func (p *PrefsStore) SetCredentialsFile(path string) error {
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("credentials file: %w", err)
		}
		path = abs
	}
	return p.Update(func(prefs *Prefs) error {
		prefs.CredentialsFile = path
		return nil
	})
}

// TranscriptionSettings implements core.SettingsSource. Credentials come from
// the environment override, the configured file, or the inline key, in that
// order. Missing credentials are not an error here; the recognizer reports them.
func (p *PrefsStore) TranscriptionSettings(ctx context.Context) (core.Settings, error) {
	prefs, err := p.Read()
	if err != nil {
		return core.Settings{}, err
	}

	settings := core.Settings{LanguageCode: prefs.TranscriptionLanguage}
	if settings.LanguageCode == "" {
		settings.LanguageCode = DefaultLanguage
	}

	file := p.getenv(CredentialsEnv)
	if file == "" {
		file = prefs.CredentialsFile
	}
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return core.Settings{}, fmt.Errorf("failed to read credentials: %w", err)
		}
		settings.Credentials = data
	case prefs.Credentials != "":
		settings.Credentials = []byte(prefs.Credentials)
	default:
		p.logger.Debug("no recognition credentials configured")
	}
	return settings, nil
}

var (
	_ core.CategoryRepository = (*PrefsStore)(nil)
	_ core.SettingsSource     = (*PrefsStore)(nil)
)
