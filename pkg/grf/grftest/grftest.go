// Package grftest builds in-memory GRF 0x200 archives for tests.
package grftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"

	"github.com/Faultbox/meshsimplify/pkg/encoding"
)

// Entry flags understood by the grf package.
const (
	FlagFile = 0x01
	FlagDES  = 0x04
)

const seed = 3

// File is one archive entry. A zero Flags means a plain file.
type File struct {
	Name   string
	Data   []byte
	Stored bool // keep uncompressed
	Flags  uint8
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Build encodes files as header, 8-byte aligned bodies, then the
// compressed file table. Names are written as EUC-KR.
func Build(files []File) ([]byte, error) {
	var body, table bytes.Buffer
	le := binary.LittleEndian

	for _, f := range files {
		stored := f.Data
		if !f.Stored {
			var err error
			if stored, err = deflate(f.Data); err != nil {
				return nil, err
			}
		}
		offset := uint32(body.Len())
		aligned := (len(stored) + 7) &^ 7
		body.Write(stored)
		body.Write(make([]byte, aligned-len(stored)))

		flags := f.Flags
		if flags == 0 {
			flags = FlagFile
		}
		table.Write(encoding.UTF8ToEUCKR(f.Name))
		table.WriteByte(0)
		binary.Write(&table, le, [3]uint32{uint32(len(stored)), uint32(aligned), uint32(len(f.Data))})
		table.WriteByte(flags)
		binary.Write(&table, le, offset)
	}

	var out bytes.Buffer
	var magic, key [15]byte
	copy(magic[:], "Master of Magic")
	out.Write(magic[:])
	out.Write(key[:])
	binary.Write(&out, le, [4]uint32{uint32(body.Len()), seed, uint32(len(files)) + seed + 7, 0x200})
	out.Write(body.Bytes())

	compressed, err := deflate(table.Bytes())
	if err != nil {
		return nil, err
	}
	binary.Write(&out, le, [2]uint32{uint32(len(compressed)), uint32(table.Len())})
	out.Write(compressed)
	return out.Bytes(), nil
}
