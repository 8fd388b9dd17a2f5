package bytecode

import (
	"bytes"
	"encoding/gob"
	"os"
)

// Save writes b to path as a gob-encoded bytecode file (the ".tpc" format
// cmd/tpsc produces and cmd/tpsrun/cmd/tpsdesktop load).
func (b *Bytecode) Save(path string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reads a bytecode file written by Save.
func Load(path string) (*Bytecode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b := New()
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(b); err != nil {
		return nil, err
	}
	return b, nil
}
