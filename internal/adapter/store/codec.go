package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

func indexKey(i int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(i))
	return k[:]
}

func keyIndex(k []byte) (int, error) {
	if len(k) != 8 {
		return 0, fmt.Errorf("malformed key of %d bytes", len(k))
	}
	return int(binary.BigEndian.Uint64(k)), nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector appends the floats in b to dst.
func decodeVector(dst []float32, b []byte) []float32 {
	for i := 0; i+4 <= len(b); i += 4 {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(b[i:])))
	}
	return dst
}
