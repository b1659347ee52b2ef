package catalog

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

var gzipMagic = []byte{0x1f, 0x8b}

// DecodeError reports a feed payload that could not be decompressed or parsed.
type DecodeError struct {
	Stage string // "gzip" or "json"
	Raw   []byte // payload after decompression (or as received when gzip failed)
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode catalog (%s): %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Preview returns at most n bytes of the offending payload.
func (e *DecodeError) Preview(n int) string {
	if n <= 0 || len(e.Raw) <= n {
		return string(e.Raw)
	}
	return string(e.Raw[:n])
}

type envelope struct {
	Data []Product `json:"data"`
}

// Decode parses a (possibly gzip-compressed) feed payload and returns the
// records found under "data". A missing or null "data" yields an empty list.
func Decode(raw []byte) ([]Product, error) {
	body := raw
	if bytes.HasPrefix(raw, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, &DecodeError{Stage: "gzip", Raw: raw, Err: err}
		}
		body, err = io.ReadAll(zr)
		_ = zr.Close()
		if err != nil {
			return nil, &DecodeError{Stage: "gzip", Raw: raw, Err: err}
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &DecodeError{Stage: "json", Raw: body, Err: err}
	}
	if env.Data == nil {
		return []Product{}, nil
	}
	return env.Data, nil
}
