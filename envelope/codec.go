package envelope

import "io"

// Codec pairs Build and Decoder behind a single value.
type Codec struct {
	Decoder Decoder
}

func NewCodec() Codec {
	return Codec{}
}

func (Codec) Encode(action string, args any) ([]byte, error) {
	return Build(action, args)
}

func (c Codec) Decode(r io.Reader) (Node, error) {
	return c.Decoder.Decode(r)
}
