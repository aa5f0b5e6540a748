/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

const (
	arrayOpen  = "[\n"
	arraySep   = "\n,\n"
	arrayClose = "\n]\n"
)

// EncodeArray writes seq to w as a JSON array, one record at a time, so
// that a slow reader applies back-pressure to the writer producing seq.
func EncodeArray(w io.Writer, seq iter.Seq2[Record, error]) error {
	if _, err := io.WriteString(w, arrayOpen); err != nil {
		return err
	}
	first := true
	for rec, err := range seq {
		if err != nil {
			return err
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
		if !first {
			if _, err := io.WriteString(w, arraySep); err != nil {
				return err
			}
		}
		first = false
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	closing := arrayClose
	if first {
		closing = "]\n"
	}
	_, err := io.WriteString(w, closing)
	return err
}

// EncodeEnvelope writes {"tag":…,"type":…,"data":[…]} to w, streaming the
// data array from seq.
func EncodeEnvelope(w io.Writer, tag, typ string, seq iter.Seq2[Record, error]) error {
	t, err := json.Marshal(tag)
	if err != nil {
		return err
	}
	ty, err := json.Marshal(typ)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `{"tag":%s,"type":%s,"data":`, t, ty); err != nil {
		return err
	}
	if err := EncodeArray(w, seq); err != nil {
		return err
	}
	_, err = io.WriteString(w, "}")
	return err
}
