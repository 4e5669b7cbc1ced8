package store

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/openmol/molscript/pkg/model"
)

// record is what one bucket entry holds.
type record struct {
	Name     string
	Saved    time.Time
	Snapshot model.Snapshot
	Indices  []int
	Vars     map[string]string
}

func init() {
	gob.Register(record{})
	gob.Register(model.Snapshot{})
}

// encodeRecord serializes a record to bytes using gob.
func encodeRecord(r *record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRecord deserializes bytes back into a record.
func decodeRecord(data []byte) (*record, error) {
	var r record
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
