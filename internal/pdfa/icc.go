package pdfa

import (
	"bytes"
	"encoding/binary"
	"math"
)

// sRGB output condition recorded in the output intent
const (
	outputConditionID = "sRGB IEC61966-2.1"
	iccRegistry       = "http://www.color.org"
)

// srgbProfile is a compact ICC v2 display profile: sRGB primaries adapted to
// D50 and a 2.2 gamma curve shared by the three channels.
var srgbProfile = buildSRGBProfile()

type iccTag struct {
	sig  string
	data []byte
}

func buildSRGBProfile() []byte {
	trc := curveType(2.2)
	tags := []iccTag{
		{"desc", textDescriptionType(outputConditionID)},
		{"cprt", textType("No copyright, use freely")},
		{"wtpt", xyzType(0.9642, 1.0, 0.8249)},
		{"rXYZ", xyzType(0.4361, 0.2225, 0.0139)},
		{"gXYZ", xyzType(0.3851, 0.7169, 0.0971)},
		{"bXYZ", xyzType(0.1431, 0.0606, 0.7141)},
		{"rTRC", trc},
		{"gTRC", trc},
		{"bTRC", trc},
	}

	const headerSize = 128
	tableSize := 4 + 12*len(tags)

	var table, data bytes.Buffer
	binary.Write(&table, binary.BigEndian, uint32(len(tags)))
	offsets := make(map[string]int)
	for _, t := range tags {
		key := string(t.data)
		off, shared := offsets[key]
		if !shared {
			off = headerSize + tableSize + data.Len()
			offsets[key] = off
			data.Write(t.data)
			for data.Len()%4 != 0 {
				data.WriteByte(0)
			}
		}
		table.WriteString(t.sig)
		binary.Write(&table, binary.BigEndian, uint32(off))
		binary.Write(&table, binary.BigEndian, uint32(len(t.data)))
	}

	size := headerSize + table.Len() + data.Len()
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[0:], uint32(size))
	binary.BigEndian.PutUint32(header[8:], 0x02100000)
	copy(header[12:], "mntr")
	copy(header[16:], "RGB ")
	copy(header[20:], "XYZ ")
	for i, v := range []uint16{2025, 1, 1, 0, 0, 0} {
		binary.BigEndian.PutUint16(header[24+2*i:], v)
	}
	copy(header[36:], "acsp")
	putXYZ(header[68:], 0.9642, 1.0, 0.8249)

	out := make([]byte, 0, size)
	out = append(out, header...)
	out = append(out, table.Bytes()...)
	return append(out, data.Bytes()...)
}

func s15Fixed16(v float64) uint32 {
	return uint32(int32(math.Round(v * 65536)))
}

func putXYZ(b []byte, x, y, z float64) {
	binary.BigEndian.PutUint32(b[0:], s15Fixed16(x))
	binary.BigEndian.PutUint32(b[4:], s15Fixed16(y))
	binary.BigEndian.PutUint32(b[8:], s15Fixed16(z))
}

func xyzType(x, y, z float64) []byte {
	b := make([]byte, 20)
	copy(b, "XYZ ")
	putXYZ(b[8:], x, y, z)
	return b
}

func curveType(gamma float64) []byte {
	b := make([]byte, 14)
	copy(b, "curv")
	binary.BigEndian.PutUint32(b[8:], 1)
	binary.BigEndian.PutUint16(b[12:], uint16(math.Round(gamma*256)))
	return b
}

func textType(s string) []byte {
	b := make([]byte, 8, 8+len(s)+1)
	copy(b, "text")
	b = append(b, s...)
	return append(b, 0)
}

// textDescriptionType carries the ASCII description only; the Unicode and
// ScriptCode parts are present but empty.
func textDescriptionType(s string) []byte {
	var b bytes.Buffer
	b.WriteString("desc")
	b.Write(make([]byte, 4))
	binary.Write(&b, binary.BigEndian, uint32(len(s)+1))
	b.WriteString(s)
	b.WriteByte(0)
	b.Write(make([]byte, 4+4)) // unicode language code and count
	b.Write(make([]byte, 2+1)) // scriptcode code and count
	b.Write(make([]byte, 67))
	return b.Bytes()
}
