package radio

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// PatchChunkSize is the number of patch bytes sent per write transaction.
const PatchChunkSize = 8

// downloadPatch writes the image in order, one transaction per chunk.
// The last chunk may be shorter. Nothing is polled between chunks.
func (s *Si473xDriver) downloadPatch(image []byte) error {
	chunks := 0
	for offset := 0; offset < len(image); offset += PatchChunkSize {
		end := offset + PatchChunkSize
		if end > len(image) {
			end = len(image)
		}

		n, err := s.conn.Write(image[offset:end])
		if err != nil {
			return &BusError{Op: "patch download at offset " + strconv.Itoa(offset), Err: err}
		}
		if n != end-offset {
			return &BusError{
				Op:  "patch download at offset " + strconv.Itoa(offset),
				Err: errors.Errorf("short write, %d of %d bytes", n, end-offset),
			}
		}
		chunks++

		if s.chunkDelay > 0 {
			s.sleep(s.chunkDelay)
		}
	}

	if s.debugMode {
		s.debugLog("Patch downloaded: %d bytes in %d chunks\n", len(image), chunks)
	}
	return nil
}

// LoadPatch reads a patch image. Text images are lists of decimal or
// 0x-prefixed hex bytes separated by commas or white space, optionally
// wrapped in brackets and assigned to a name, as in
//
//	ssb_patch_content = [0xF3, 0x22, ...]
//
// Everything after a '#' or '//' on a line is ignored. Anything that is
// not printable text is taken as the raw binary image.
func LoadPatch(r io.Reader) ([]byte, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read patch image")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ConfigError{Field: "patch", Value: "empty", Reason: "patch image has no bytes"}
	}

	if !isTextPatch(data) {
		return data, nil
	}

	fields := strings.FieldsFunc(patchList(string(data)), func(r rune) bool {
		return r == ',' || r == ';' || r == '[' || r == ']' || r == '{' || r == '}' || unicode.IsSpace(r)
	})

	image := make([]byte, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 0, 8)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("patch byte %d", i), Value: f, Reason: "not a byte value"}
		}
		image = append(image, byte(v))
	}
	if len(image) == 0 {
		return nil, &ConfigError{Field: "patch", Value: "empty", Reason: "patch image has no bytes"}
	}
	return image, nil
}

// patchList drops comments and the name the list is assigned to.
func patchList(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		lines[i] = line
	}

	list := strings.Join(lines, "\n")
	if idx := strings.Index(list, "="); idx >= 0 {
		list = list[idx+1:]
	}
	return list
}

// isTextPatch reports whether data is printable ASCII.
func isTextPatch(data []byte) bool {
	for _, b := range data {
		if (b < 0x20 || b > 0x7e) && b != '\t' && b != '\r' && b != '\n' {
			return false
		}
	}
	return true
}
