package runs

import (
	"fmt"

	"github.com/powerpit/backend/internal/physics"
	"github.com/vmihailenco/msgpack/v5"
)

// FrameMessage is the payload published on a run's frame channel. The last
// message of a run has Done set and carries no snapshot; Error is set when
// the run failed.
type FrameMessage struct {
	RunID    int64            `msgpack:"run"`
	Snapshot physics.Snapshot `msgpack:"snap"`
	Done     bool             `msgpack:"done,omitempty"`
	Error    string           `msgpack:"err,omitempty"`
}

// EncodeFrame packs a frame message with msgpack.
func EncodeFrame(m FrameMessage) ([]byte, error) {
	data, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// DecodeFrame unpacks a payload produced by EncodeFrame.
func DecodeFrame(data []byte) (FrameMessage, error) {
	var m FrameMessage
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return FrameMessage{}, fmt.Errorf("decode frame: %w", err)
	}
	return m, nil
}
