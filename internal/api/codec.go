package api

import (
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"resizewatch/internal/resize"
)

const frameTypeResize = "resize"

var frameMarshal = protojson.MarshalOptions{UseProtoNames: true}

// sampleValue returns the sample's fields keyed by name, in the shape
// structpb.NewStruct accepts.
func sampleValue(sample resize.Sample) map[string]any {
	fields := make(map[string]any, len(resize.Dimensions))
	for name, value := range sample.Map() {
		fields[name] = value
	}
	return fields
}

// encodeSample renders the sample document served by /api/sample.
func encodeSample(sample resize.Sample, state resize.State) ([]byte, error) {
	message, err := structpb.NewStruct(map[string]any{
		"sample": sampleValue(sample),
		"state":  state.String(),
	})
	if err != nil {
		return nil, err
	}
	return frameMarshal.Marshal(message)
}

// encodeResizeFrame renders one websocket frame. The sample is whatever the
// watcher holds when the frame is built, which may be newer than the change
// that caused the notification.
func encodeResizeFrame(sequence int64, sample resize.Sample, at time.Time) ([]byte, error) {
	message, err := structpb.NewStruct(map[string]any{
		"type":        frameTypeResize,
		"sequence":    sequence,
		"sample":      sampleValue(sample),
		"occurred_at": at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return frameMarshal.Marshal(message)
}

// decodeFrame parses a frame produced by encodeResizeFrame or encodeSample.
func decodeFrame(data []byte) (map[string]any, error) {
	message := &structpb.Struct{}
	if err := protojson.Unmarshal(data, message); err != nil {
		return nil, err
	}
	return message.AsMap(), nil
}
