// Package control implements the daemon's management control channel: a
// length-prefixed JSON request/response stream over a Unix domain socket
// (spec.md §6). Commands are a closed sum type dispatched by a single type
// switch, replacing the source's dictionary-of-string-to-callable handler
// table (spec.md §9 "re-architect as a closed sum type of command kinds").
package control

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameSize bounds a single request or response frame (spec.md §6
// "Maximum frame 10 MiB").
const maxFrameSize = 10 * 1024 * 1024

// wireRequest is the raw JSON envelope the Python source and any GUI client
// send: {"command": "...", "params": {...}}.
type wireRequest struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

// Response is the raw JSON envelope returned for every request, per
// spec.md §6: {success, data|null, error}.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// readFrame reads one 4-byte-big-endian-length-prefixed frame from r.
func readFrame(r io.Reader) ([]byte, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > maxFrameSize {
		return nil, fmt.Errorf("control: frame of %d bytes exceeds %d byte limit", length, maxFrameSize)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFrame writes payload as one length-prefixed frame to w.
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("control: response of %d bytes exceeds %d byte limit", len(payload), maxFrameSize)
	}
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.Write(lengthBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// writeResponse frames and writes resp to w, flushing a *bufio.Writer if w
// is one.
func writeResponse(w io.Writer, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := writeFrame(w, payload); err != nil {
		return err
	}
	if bw, ok := w.(*bufio.Writer); ok {
		return bw.Flush()
	}
	return nil
}
