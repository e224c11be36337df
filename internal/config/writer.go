package config

import (
	"encoding/json"

	"github.com/quantmind-br/dpm/internal/core"
	"github.com/quantmind-br/dpm/internal/fsops"
	"github.com/spf13/afero"
)

// Writer persists the mode setting. Only offline_mode is rewritten; every
// other key keeps its value.
type Writer struct {
	fs   afero.Fs
	path string
}

// NewWriter creates a writer for the config file at path
func NewWriter(fs afero.Fs, path string) *Writer {
	return &Writer{fs: fs, path: path}
}

// SaveModeSetting writes offline_mode as true, false or "auto"
func (w *Writer) SaveModeSetting(setting core.ModeSetting) error {
	doc := make(map[string]json.RawMessage)

	data, err := afero.ReadFile(w.fs, w.path)
	switch {
	case err == nil && len(data) > 0:
		if err := json.Unmarshal(data, &doc); err != nil {
			return core.WrapErrorf(err, core.CodeConfig, "parse %s", w.path)
		}
	case err != nil:
		if fsops.Exists(w.fs, w.path) {
			return core.WrapErrorf(err, core.CodeConfig, "read %s", w.path)
		}
	}

	var value interface{}
	switch setting {
	case core.SettingOffline:
		value = true
	case core.SettingOnline:
		value = false
	case core.SettingAuto:
		value = "auto"
	default:
		return core.NewErrorf(core.CodeInvalidInput, "invalid mode setting %q", setting)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return core.WrapError(err, core.CodeConfig, "encode offline_mode")
	}
	doc["offline_mode"] = raw

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return core.WrapError(err, core.CodeConfig, "encode config")
	}
	out = append(out, '\n')

	if err := fsops.WriteFileAtomic(w.fs, w.path, out, 0o644); err != nil {
		return core.WrapErrorf(err, core.CodeConfig, "write %s", w.path)
	}
	return nil
}
