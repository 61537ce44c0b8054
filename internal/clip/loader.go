package clip

import (
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayusman/vrmtrack/internal/rig"
)

//go:embed data/*.json
var embeddedClips embed.FS

// LoadEmbedded loads a clip shipped with the binary.
func LoadEmbedded(name string) (*Clip, error) {
	data, err := embeddedClips.ReadFile(fmt.Sprintf("data/%s.json", name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Parse(name, data)
}

// ListEmbedded returns the names of all embedded clips.
func ListEmbedded() ([]string, error) {
	entries, err := embeddedClips.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded clips: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return names, nil
}

// LoadFromFile loads a clip from a JSON file. The clip is named after the
// file.
func LoadFromFile(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip file: %w", err)
	}
	return Parse(strings.TrimSuffix(filepath.Base(path), ".json"), data)
}

// LoadFromDirectory loads every *.json clip in dir.
func LoadFromDirectory(dir string) ([]*Clip, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("failed to read clip directory: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list clip files: %w", err)
	}

	var clips []*Clip
	for _, file := range files {
		c, err := LoadFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		clips = append(clips, c)
	}
	return clips, nil
}

// Parse decodes and validates clip JSON.
func Parse(name string, data []byte) (*Clip, error) {
	var raw ClipData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidClip, name, err)
	}

	if len(raw.Time) == 0 || len(raw.Frames) == 0 {
		return nil, fmt.Errorf("%w: clip %q has no keyframe data", ErrInvalidClip, name)
	}
	if len(raw.Time) != len(raw.Frames) {
		return nil, fmt.Errorf("%w: clip %q has mismatched timestamps and keyframes", ErrInvalidClip, name)
	}
	for i := 1; i < len(raw.Time); i++ {
		if raw.Time[i] < raw.Time[i-1] {
			return nil, fmt.Errorf("%w: clip %q timestamps are not sorted", ErrInvalidClip, name)
		}
	}

	for i, frame := range raw.Frames {
		for bone, q := range frame.Bones {
			if _, err := rig.ParseBoneName(string(bone)); err != nil {
				return nil, fmt.Errorf("%w: clip %q frame %d: %v", ErrInvalidClip, name, i, err)
			}
			if q == (Quat{}) || !finiteQuat(q) {
				return nil, fmt.Errorf("%w: clip %q frame %d: bad rotation for %s", ErrInvalidClip, name, i, bone)
			}
		}
		for e := range frame.Expressions {
			if _, err := rig.ParseExpression(string(e)); err != nil {
				return nil, fmt.Errorf("%w: clip %q frame %d: %v", ErrInvalidClip, name, i, err)
			}
		}
	}

	duration := raw.Time[len(raw.Time)-1] - raw.Time[0]

	return &Clip{
		Name:        name,
		Description: raw.Description,
		Duration:    time.Duration(duration * float64(time.Second)),
		Keyframes:   raw.Frames,
		Timestamps:  raw.Time,
	}, nil
}

func finiteQuat(q Quat) bool {
	for _, v := range q {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
