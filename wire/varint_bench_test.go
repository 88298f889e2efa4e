package wire

import (
	"bytes"
	"testing"
)

// vbiBenchValues spans the four byte-count tiers so the benchmarks that
// range over it exercise the same boundary set as the correctness tests.
var vbiBenchValues = map[string]uint32{
	"1 byte":  127,
	"2 byte":  16383,
	"3 byte":  2097151,
	"4 byte":  268435455,
}

func BenchmarkEncodeVariableByteInteger(b *testing.B) {
	for name, v := range vbiBenchValues {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := EncodeVariableByteInteger(v); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEncodeVariableByteIntegerTo(b *testing.B) {
	buf := make([]byte, 10)
	for name, v := range vbiBenchValues {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := EncodeVariableByteIntegerTo(buf, 0, v); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func encodedVBI(b *testing.B, v uint32) []byte {
	b.Helper()
	enc, err := EncodeVariableByteInteger(v)
	if err != nil {
		b.Fatal(err)
	}
	return enc
}

func BenchmarkDecodeVariableByteInteger(b *testing.B) {
	for name, v := range vbiBenchValues {
		enc := encodedVBI(b, v)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(enc)))
			for i := 0; i < b.N; i++ {
				if _, err := DecodeVariableByteInteger(bytes.NewReader(enc)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecodeVariableByteIntegerFromBytes(b *testing.B) {
	for name, v := range vbiBenchValues {
		enc := encodedVBI(b, v)
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(enc)))
			for i := 0; i < b.N; i++ {
				if _, _, err := DecodeVariableByteIntegerFromBytes(enc); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSizeVariableByteInteger(b *testing.B) {
	values := []uint32{0, 127, 128, 16383, 16384, 2097151, 2097152, 268435455}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = SizeVariableByteInteger(values[i%len(values)])
	}
}

func BenchmarkVariableByteIntegerRoundTripBench(b *testing.B) {
	for name, v := range vbiBenchValues {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				enc, err := EncodeVariableByteInteger(v)
				if err != nil {
					b.Fatal(err)
				}
				dec, _, err := DecodeVariableByteIntegerFromBytes(enc)
				if err != nil {
					b.Fatal(err)
				}
				if dec != v {
					b.Fatal("round trip produced a different value")
				}
			}
		})
	}
}
