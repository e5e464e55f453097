package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

const (
	JSONSuffix    = ".tpl.json"
	MsgpackSuffix = ".tpl.msgpack"
)

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

// DetectFormat picks the codec from the file suffix.
func DetectFormat(path string) (Format, bool) {
	switch {
	case strings.HasSuffix(path, JSONSuffix):
		return FormatJSON, true
	case strings.HasSuffix(path, MsgpackSuffix):
		return FormatMsgpack, true
	}
	return FormatJSON, false
}

// IsBundlePath reports whether path carries a bundle suffix.
func IsBundlePath(path string) bool {
	_, ok := DetectFormat(path)
	return ok
}

// Decode parses raw bundle bytes. Structural validation happens in Load.
func Decode(data []byte, format Format) (*Bundle, error) {
	var b Bundle
	switch format {
	case FormatMsgpack:
		if err := msgpack.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("%w: msgpack: %w", ErrMalformed, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&b); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrMalformed, err)
		}
	}
	if b.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrUnsupportedVersion, b.Version, SchemaVersion)
	}
	return &b, nil
}

// Encode serialises b in the given format.
func Encode(b *Bundle, format Format) ([]byte, error) {
	if format == FormatMsgpack {
		return msgpack.Marshal(b)
	}
	return json.MarshalIndent(b, "", "  ")
}

// Read loads and decodes a bundle file, choosing the codec by suffix.
func Read(path string) (*Bundle, []byte, error) {
	format, ok := DetectFormat(path)
	if !ok {
		return nil, nil, fmt.Errorf("%s: not a template bundle (want %s or %s)", path, JSONSuffix, MsgpackSuffix)
	}
	// #nosec G304 -- path is a user supplied bundle
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	b, err := Decode(data, format)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return b, data, nil
}
