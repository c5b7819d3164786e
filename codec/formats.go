package codec

import "github.com/cocosip/go-raw-codec/raw"

// HeaderSize is the number of leading bytes detection looks at
const HeaderSize = 32

func sig(offset int, magic string) Signature {
	return Signature{Offset: offset, Magic: []byte(magic)}
}

// Container families in detection order. The TIFF entry matches any
// TIFF-structured file, so the vendor formats built on TIFF come first.
var rawFormats = []struct {
	name string
	sigs []Signature
}{
	{"cr3", []Signature{sig(4, "ftypcrx ")}},
	{"cr2", []Signature{sig(0, "II*\x00\x10\x00\x00\x00CR")}},
	{"crw", []Signature{sig(6, "HEAPCCDR")}},
	{"raf", []Signature{sig(0, "FUJIFILMCCD-RAW")}},
	{"orf", []Signature{sig(0, "IIRO"), sig(0, "IIRS"), sig(0, "MMOR")}},
	{"rw2", []Signature{sig(0, "IIU\x00")}},
	{"x3f", []Signature{sig(0, "FOVb")}},
	{"mrw", []Signature{sig(0, "\x00MRM")}},
	{"tiff", []Signature{sig(0, "II*\x00"), sig(0, "MM\x00*")}},
}

// RawFormats returns one codec per known container family, in detection
// order, all decoding through dec.
func RawFormats(dec *raw.Decoder) []Codec {
	codecs := make([]Codec, 0, len(rawFormats))
	for _, f := range rawFormats {
		codecs = append(codecs, NewRawCodec(f.name, dec, f.sigs...))
	}
	return codecs
}

// RegisterRawFormats registers every known container family in the default
// registry
func RegisterRawFormats(dec *raw.Decoder) {
	for _, c := range RawFormats(dec) {
		Register(c)
	}
}
