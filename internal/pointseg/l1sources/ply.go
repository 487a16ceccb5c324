package l1sources

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// PLYFormat selects the body encoding written by WritePLY.
type PLYFormat string

const (
	PLYBinaryLittleEndian PLYFormat = "binary_little_endian"
	PLYBinaryBigEndian    PLYFormat = "binary_big_endian"
	PLYASCII              PLYFormat = "ascii"
)

// maxPLYPoints bounds allocation from untrusted headers. The largest S3DIS
// room holds about 9M points.
const maxPLYPoints = 64 << 20

type plyProperty struct {
	name string
	kind string
	size int
}

type plyHeader struct {
	format PLYFormat
	count  int
	props  []plyProperty
	stride int
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4, "double": 8, "float64": 8,
}

// ReadPLY decodes the vertex element of a PLY stream. The vertex element
// must come first and carry x, y, z, red, green, blue and class (or label)
// scalar properties of any PLY type; other properties are skipped.
func ReadPLY(r io.Reader) (*PointCloud, error) {
	br := bufio.NewReader(r)
	hdr, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(hdr.props))
	for i, p := range hdr.props {
		idx[p.name] = i
	}
	if _, ok := idx["class"]; !ok {
		if li, ok := idx["label"]; ok {
			idx["class"] = li
		}
	}
	for _, want := range []string{"x", "y", "z", "red", "green", "blue", "class"} {
		if _, ok := idx[want]; !ok {
			return nil, fmt.Errorf("ply: vertex element missing property %q", want)
		}
	}

	pc := &PointCloud{
		Coords: make([]r3.Vec, hdr.count),
		Colors: make([][3]float32, hdr.count),
		Labels: make([]int64, hdr.count),
	}
	row := make([]float64, len(hdr.props))
	assign := func(i int) {
		pc.Coords[i] = r3.Vec{X: row[idx["x"]], Y: row[idx["y"]], Z: row[idx["z"]]}
		pc.Colors[i] = [3]float32{float32(row[idx["red"]]), float32(row[idx["green"]]), float32(row[idx["blue"]])}
		pc.Labels[i] = int64(row[idx["class"]])
	}

	if hdr.format == PLYASCII {
		for i := 0; i < hdr.count; i++ {
			line, err := br.ReadString('\n')
			if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
				return nil, fmt.Errorf("ply: vertex %d: %w", i, io.ErrUnexpectedEOF)
			}
			fields := strings.Fields(line)
			if len(fields) < len(hdr.props) {
				return nil, fmt.Errorf("ply: vertex %d has %d values, want %d", i, len(fields), len(hdr.props))
			}
			for j := range hdr.props {
				v, err := strconv.ParseFloat(fields[j], 64)
				if err != nil {
					return nil, fmt.Errorf("ply: vertex %d property %s: %w", i, hdr.props[j].name, err)
				}
				row[j] = v
			}
			assign(i)
		}
		return pc, nil
	}

	var order binary.ByteOrder = binary.LittleEndian
	if hdr.format == PLYBinaryBigEndian {
		order = binary.BigEndian
	}
	buf := make([]byte, hdr.stride)
	for i := 0; i < hdr.count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("ply: vertex %d: %w", i, err)
		}
		off := 0
		for j, p := range hdr.props {
			row[j] = decodePLYScalar(p.kind, buf[off:off+p.size], order)
			off += p.size
		}
		assign(i)
	}
	return pc, nil
}

func readPLYHeader(br *bufio.Reader) (*plyHeader, error) {
	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("ply: missing magic line")
	}

	hdr := &plyHeader{count: -1}
	inVertex := false
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("ply: header not terminated: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "end_header":
			if hdr.format == "" {
				return nil, fmt.Errorf("ply: missing format line")
			}
			if hdr.count < 0 {
				return nil, fmt.Errorf("ply: missing vertex element")
			}
			return hdr, nil
		case "comment", "obj_info":
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("ply: malformed format line %q", strings.TrimSpace(line))
			}
			switch f := PLYFormat(fields[1]); f {
			case PLYASCII, PLYBinaryLittleEndian, PLYBinaryBigEndian:
				hdr.format = f
			default:
				return nil, fmt.Errorf("ply: unsupported format %q", fields[1])
			}
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("ply: malformed element line %q", strings.TrimSpace(line))
			}
			if fields[1] != "vertex" {
				if hdr.count < 0 {
					return nil, fmt.Errorf("ply: element %q precedes vertex", fields[1])
				}
				inVertex = false
				continue
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 || n > maxPLYPoints {
				return nil, fmt.Errorf("ply: invalid vertex count %q", fields[2])
			}
			hdr.count = n
			inVertex = true
		case "property":
			if !inVertex {
				continue
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("ply: unsupported vertex property %q", strings.TrimSpace(line))
			}
			size, ok := plyTypeSizes[fields[1]]
			if !ok {
				return nil, fmt.Errorf("ply: unknown property type %q", fields[1])
			}
			hdr.props = append(hdr.props, plyProperty{name: fields[2], kind: fields[1], size: size})
			hdr.stride += size
		default:
			return nil, fmt.Errorf("ply: unexpected header line %q", strings.TrimSpace(line))
		}
	}
}

func decodePLYScalar(kind string, b []byte, order binary.ByteOrder) float64 {
	switch kind {
	case "char", "int8":
		return float64(int8(b[0]))
	case "uchar", "uint8":
		return float64(b[0])
	case "short", "int16":
		return float64(int16(order.Uint16(b)))
	case "ushort", "uint16":
		return float64(order.Uint16(b))
	case "int", "int32":
		return float64(int32(order.Uint32(b)))
	case "uint", "uint32":
		return float64(order.Uint32(b))
	case "float", "float32":
		return float64(math.Float32frombits(order.Uint32(b)))
	default: // double
		return math.Float64frombits(order.Uint64(b))
	}
}

// WritePLY encodes pc as a PLY vertex element with float xyz, uchar colors
// and int class, the layout the S3DIS preprocessing emits.
func WritePLY(w io.Writer, pc *PointCloud, format PLYFormat) error {
	if err := pc.Validate(); err != nil {
		return err
	}
	var hdr bytes.Buffer
	fmt.Fprintf(&hdr, "ply\nformat %s 1.0\nelement vertex %d\n", format, pc.Len())
	for _, p := range []string{"float x", "float y", "float z", "uchar red", "uchar green", "uchar blue", "int class"} {
		fmt.Fprintf(&hdr, "property %s\n", p)
	}
	hdr.WriteString("end_header\n")

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(hdr.Bytes()); err != nil {
		return err
	}

	switch format {
	case PLYASCII:
		for i, c := range pc.Coords {
			col := pc.Colors[i]
			fmt.Fprintf(bw, "%g %g %g %d %d %d %d\n",
				float32(c.X), float32(c.Y), float32(c.Z),
				clampColor(col[0]), clampColor(col[1]), clampColor(col[2]), pc.Labels[i])
		}
	case PLYBinaryLittleEndian, PLYBinaryBigEndian:
		var order binary.ByteOrder = binary.LittleEndian
		if format == PLYBinaryBigEndian {
			order = binary.BigEndian
		}
		rec := make([]byte, 19)
		for i, c := range pc.Coords {
			order.PutUint32(rec[0:], math.Float32bits(float32(c.X)))
			order.PutUint32(rec[4:], math.Float32bits(float32(c.Y)))
			order.PutUint32(rec[8:], math.Float32bits(float32(c.Z)))
			col := pc.Colors[i]
			rec[12], rec[13], rec[14] = clampColor(col[0]), clampColor(col[1]), clampColor(col[2])
			order.PutUint32(rec[15:], uint32(int32(pc.Labels[i])))
			if _, err := bw.Write(rec); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("ply: unsupported format %q", format)
	}
	return bw.Flush()
}

func clampColor(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
