package verify

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonConfig = jsoniter.Config{
	EscapeHTML: false,
}.Froze()

// Dump writes every pool and its blocks to out as one JSON object:
//
//	{"pools":[{"off":0,"len":65536,"blocks":[{"off":0,"size":64,"free":false,"prev":-1},...]}]}
func Dump(out io.Writer, w Walker) error {
	stream := jsonConfig.BorrowStream(out)
	defer jsonConfig.ReturnStream(stream)

	stream.Write([]byte(`{"pools":[`))
	for i, p := range w.Pools() {
		if i > 0 {
			stream.WriteMore()
		}
		stream.Write([]byte(`{"off":`))
		stream.WriteInt(p.Off)
		stream.Write([]byte(`,"len":`))
		stream.WriteInt(p.Len)
		stream.Write([]byte(`,"blocks":[`))
		first := true
		for b := range w.IterBlocks(p) {
			if !first {
				stream.WriteMore()
			}
			first = false
			stream.Write([]byte(`{"off":`))
			stream.WriteInt(b.Off)
			stream.Write([]byte(`,"size":`))
			stream.WriteInt(b.Size)
			stream.Write([]byte(`,"free":`))
			stream.WriteBool(b.Free)
			stream.Write([]byte(`,"prev":`))
			stream.WriteInt(b.PrevPhys)
			stream.WriteObjectEnd()
		}
		stream.Write([]byte(`]}`))
	}
	stream.Write([]byte(`]}`))
	stream.WriteRaw("\n")
	if stream.Error != nil {
		return stream.Error
	}
	return stream.Flush()
}
