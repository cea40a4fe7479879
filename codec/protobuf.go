package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errEmptyMessage = errors.New("codec: empty protobuf payload")

// Protobuf stores proto messages in the binary wire format. Output is
// deterministic so equal messages produce equal payloads.
type Protobuf[M proto.Message] struct {
	newMsg func() M
}

// NewProtobuf needs a constructor for the concrete message,
// e.g. func() *pb.User { return &pb.User{} }.
func NewProtobuf[M proto.Message](ctor func() M) Protobuf[M] {
	return Protobuf[M]{newMsg: ctor}
}

func (c Protobuf[M]) Encode(m M) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(m)
}

// Decode rejects an empty payload; the message would otherwise decode as
// all defaults and hide a truncated write.
func (c Protobuf[M]) Decode(b []byte) (M, error) {
	m := c.newMsg()
	if len(b) == 0 {
		return m, errEmptyMessage
	}
	err := proto.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(b, m)
	return m, err
}
