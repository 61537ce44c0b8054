package rig

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// glTF extension names that identify the humanoid standard.
const (
	extLegacy  = "VRM"
	extCurrent = "VRMC_vrm"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbHeaderLen = 12
)

// Meta is the subset of an avatar's glTF document needed to tag its version.
type Meta struct {
	ExtensionsUsed []string
	// SpecVersion is the version declared inside the VRM extension, if any.
	SpecVersion string
}

type gltfDoc struct {
	ExtensionsUsed []string                   `json:"extensionsUsed"`
	Extensions     map[string]json.RawMessage `json:"extensions"`
}

type vrmExt struct {
	SpecVersion string `json:"specVersion"`
}

// DetectVersion resolves the rig version from metadata. A document carrying
// the current extension wins over one that also lists the legacy one.
func DetectVersion(m Meta) (Version, error) {
	switch {
	case slices.Contains(m.ExtensionsUsed, extCurrent):
		return Current, nil
	case slices.Contains(m.ExtensionsUsed, extLegacy):
		return Legacy, nil
	case m.SpecVersion != "":
		return ParseVersion(m.SpecVersion)
	}
	return Unknown, ErrUnsupportedVersion
}

// ReadMeta reads avatar metadata from a binary (.vrm/.glb) or JSON (.gltf)
// document.
func ReadMeta(r io.Reader) (Meta, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Meta{}, fmt.Errorf("failed to read avatar: %w", err)
	}

	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == glbMagic {
		data, err = glbJSONChunk(data)
		if err != nil {
			return Meta{}, err
		}
	}

	var doc gltfDoc
	if err := json.Unmarshal(bytes.TrimSpace(data), &doc); err != nil {
		return Meta{}, fmt.Errorf("failed to parse glTF document: %w", err)
	}

	m := Meta{ExtensionsUsed: doc.ExtensionsUsed}
	for _, name := range []string{extCurrent, extLegacy} {
		raw, ok := doc.Extensions[name]
		if !ok {
			continue
		}
		if !slices.Contains(m.ExtensionsUsed, name) {
			m.ExtensionsUsed = append(m.ExtensionsUsed, name)
		}
		var ext vrmExt
		if err := json.Unmarshal(raw, &ext); err == nil && m.SpecVersion == "" {
			m.SpecVersion = ext.SpecVersion
		}
	}
	return m, nil
}

// ReadMetaFile opens path and reads its metadata.
func ReadMetaFile(path string) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, fmt.Errorf("failed to open avatar: %w", err)
	}
	defer f.Close()
	return ReadMeta(f)
}

func glbJSONChunk(data []byte) ([]byte, error) {
	if len(data) < glbHeaderLen+8 {
		return nil, errors.New("glb: truncated header")
	}
	total := binary.LittleEndian.Uint32(data[8:12])
	if int(total) > len(data) {
		return nil, fmt.Errorf("glb: declared length %d exceeds %d bytes", total, len(data))
	}

	chunkLen := binary.LittleEndian.Uint32(data[12:16])
	chunkType := binary.LittleEndian.Uint32(data[16:20])
	if chunkType != glbChunkJSON {
		return nil, fmt.Errorf("glb: first chunk is 0x%08x, want JSON", chunkType)
	}
	start := glbHeaderLen + 8
	end := start + int(chunkLen)
	if end > len(data) {
		return nil, errors.New("glb: truncated JSON chunk")
	}
	return data[start:end], nil
}
