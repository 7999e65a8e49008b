// Package rpc wires the cluster's node/controller chatter onto grpc.Server
// and grpc.ClientConn without a protoc-generated stub: the wire payloads are
// the same types.* structs the rest of the module already uses, carried
// with a JSON codec registered under the name "json" instead of the usual
// protobuf "proto" subtype.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
