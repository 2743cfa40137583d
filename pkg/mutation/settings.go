package mutation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EditorSettingsPath is the editor settings file the settings variants edit,
// relative to the workspace root.
const EditorSettingsPath = ".vscode/settings.json"

// SettingsOverride temporarily overrides one key in the workspace editor
// settings and puts the original file back when its lifetime ends.
type SettingsOverride struct {
	name        string
	description string
	key         string
	lifetime    time.Duration
	value       func(current any) any
	appliedMsg  string
	liftedMsg   string

	mu      sync.Mutex
	pending *settingsPatch
}

type settingsPatch struct {
	path     string
	existed  bool
	original []byte
	env      Env
	handle   *Handle
}

// NewComicSans switches the editor font to Comic Sans for ten minutes.
func NewComicSans() *SettingsOverride {
	return &SettingsOverride{
		name:        "comic-sans",
		description: "Changes the editor font to Comic Sans",
		key:         "editor.fontFamily",
		lifetime:    10 * time.Minute,
		value: func(any) any {
			return "'Comic Sans MS', 'Chalkboard SE', 'Comic Neue', sans-serif"
		},
		appliedMsg: "Your font has been upgraded.",
		liftedMsg:  "Comic Sans curse lifted",
	}
}

// NewColorInverter flips the color theme between light and dark for five minutes.
func NewColorInverter() *SettingsOverride {
	return &SettingsOverride{
		name:        "color-inverter",
		description: "Inverts the color theme (light <-> dark)",
		key:         "workbench.colorTheme",
		lifetime:    5 * time.Minute,
		value: func(current any) any {
			theme, _ := current.(string)
			if strings.Contains(theme, "Light") || strings.Contains(theme, "white") {
				return "Default Dark+"
			}
			return "Default Light+"
		},
		appliedMsg: "Lights switched.",
		liftedMsg:  "Color Inverter curse lifted!",
	}
}

func (s *SettingsOverride) Name() string        { return s.name }
func (s *SettingsOverride) Description() string { return s.description }

func (*SettingsOverride) Capabilities() Capabilities {
	return Capabilities{SelfUndo: true, Expires: true}
}

// Duration is fixed per variant; the configured duration does not apply.
func (s *SettingsOverride) Duration(Env) time.Duration { return s.lifetime }

// Eligible reports whether the settings file is absent or a JSON object.
func (*SettingsOverride) Eligible(ws Workspace) bool {
	_, _, err := readSettings(ws.Abs(EditorSettingsPath))
	return err == nil
}

func (s *SettingsOverride) Apply(_ context.Context, env Env) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		if err := s.revertLocked(); err != nil {
			return nil, fmt.Errorf("restore previous settings: %w", err)
		}
	}

	path := env.Workspace.Abs(EditorSettingsPath)
	settings, original, err := readSettings(path)
	if err != nil {
		return nil, err
	}
	settings[s.key] = s.value(settings[s.key])

	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write settings: %w", err)
	}

	p := &settingsPatch{path: path, existed: original != nil, original: original, env: env}
	p.handle = Schedule(s.lifetime, func(context.Context) error {
		return s.expire(p)
	})
	s.pending = p
	env.notify(s.appliedMsg)
	return p.handle, nil
}

func (s *SettingsOverride) Undo(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ErrNothingPending
	}
	return s.revertLocked()
}

func (s *SettingsOverride) expire(p *settingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != p {
		return nil
	}
	if err := s.revertLocked(); err != nil {
		return err
	}
	p.env.notify(s.liftedMsg)
	return nil
}

// revertLocked puts back the settings file exactly as it was, or removes it
// if it did not exist before.
func (s *SettingsOverride) revertLocked() error {
	p := s.pending
	s.pending = nil
	p.handle.Cancel()

	if !p.existed {
		if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove settings: %w", err)
		}
		_ = os.Remove(filepath.Dir(p.path)) // only succeeds when empty
		return nil
	}
	if err := os.WriteFile(p.path, p.original, 0o644); err != nil {
		return fmt.Errorf("restore settings: %w", err)
	}
	return nil
}

// readSettings returns the parsed settings and the raw bytes. A missing file
// yields an empty map and nil bytes.
func readSettings(path string) (map[string]any, []byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // workspace settings path
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	settings := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return settings, data, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return settings, data, nil
}
