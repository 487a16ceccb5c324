package l1sources

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

// maxNPYElements bounds allocation from untrusted headers.
const maxNPYElements = 1 << 30

var (
	npyDescrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	npyFortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// npyArray is a decoded NPY payload before conversion to a Go slice.
type npyArray struct {
	descr string
	shape []int
	order binary.ByteOrder
	kind  byte // 'i', 'u', 'f', 'b'
	size  int
	n     int
	data  []byte
}

// count returns the element count, or an error when the shape product
// exceeds maxNPYElements.
func (a *npyArray) count() (int, error) {
	n := 1
	for _, d := range a.shape {
		if d != 0 && n > maxNPYElements/d {
			return 0, fmt.Errorf("npy: array too large (shape %v)", a.shape)
		}
		n *= d
	}
	return n, nil
}

func readNPY(r io.Reader) (*npyArray, error) {
	br := bufio.NewReader(r)
	pre := make([]byte, 8)
	if _, err := io.ReadFull(br, pre); err != nil {
		return nil, fmt.Errorf("npy: short preamble: %w", err)
	}
	if !bytes.Equal(pre[:6], npyMagic) {
		return nil, fmt.Errorf("npy: bad magic")
	}

	var hlen int
	switch major := pre[6]; major {
	case 1:
		b := make([]byte, 2)
		if _, err := io.ReadFull(br, b); err != nil {
			return nil, fmt.Errorf("npy: header length: %w", err)
		}
		hlen = int(binary.LittleEndian.Uint16(b))
	case 2, 3:
		b := make([]byte, 4)
		if _, err := io.ReadFull(br, b); err != nil {
			return nil, fmt.Errorf("npy: header length: %w", err)
		}
		hlen = int(binary.LittleEndian.Uint32(b))
	default:
		return nil, fmt.Errorf("npy: unsupported version %d", major)
	}
	if hlen > 1<<20 {
		return nil, fmt.Errorf("npy: header too large (%d bytes)", hlen)
	}
	hb := make([]byte, hlen)
	if _, err := io.ReadFull(br, hb); err != nil {
		return nil, fmt.Errorf("npy: header: %w", err)
	}
	header := string(hb)

	arr := &npyArray{}
	m := npyDescrRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("npy: header missing descr")
	}
	arr.descr = m[1]
	if err := arr.parseDescr(); err != nil {
		return nil, err
	}
	if m := npyFortranRe.FindStringSubmatch(header); m != nil && m[1] == "True" {
		return nil, fmt.Errorf("npy: fortran_order arrays are not supported")
	}
	m = npyShapeRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("npy: header missing shape")
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("npy: bad shape dimension %q", part)
		}
		arr.shape = append(arr.shape, d)
	}

	n, err := arr.count()
	if err != nil {
		return nil, err
	}
	arr.n = n
	arr.data = make([]byte, n*arr.size)
	if _, err := io.ReadFull(br, arr.data); err != nil {
		return nil, fmt.Errorf("npy: payload: %w", err)
	}
	return arr, nil
}

func (a *npyArray) parseDescr() error {
	if len(a.descr) < 3 {
		return fmt.Errorf("npy: bad descr %q", a.descr)
	}
	switch a.descr[0] {
	case '<', '|', '=':
		a.order = binary.LittleEndian
	case '>':
		a.order = binary.BigEndian
	default:
		return fmt.Errorf("npy: bad byte order in descr %q", a.descr)
	}
	a.kind = a.descr[1]
	size, err := strconv.Atoi(a.descr[2:])
	if err != nil {
		return fmt.Errorf("npy: bad descr %q", a.descr)
	}
	a.size = size
	valid := false
	switch a.kind {
	case 'i', 'u':
		valid = size == 1 || size == 2 || size == 4 || size == 8
	case 'f':
		valid = size == 4 || size == 8
	case 'b':
		valid = size == 1
	}
	if !valid {
		return fmt.Errorf("npy: unsupported dtype %q", a.descr)
	}
	return nil
}

func (a *npyArray) int64At(i int) int64 {
	b := a.data[i*a.size:]
	switch {
	case a.kind == 'b' || (a.kind == 'u' && a.size == 1):
		return int64(b[0])
	case a.kind == 'i' && a.size == 1:
		return int64(int8(b[0]))
	case a.kind == 'i' && a.size == 2:
		return int64(int16(a.order.Uint16(b)))
	case a.kind == 'u' && a.size == 2:
		return int64(a.order.Uint16(b))
	case a.kind == 'i' && a.size == 4:
		return int64(int32(a.order.Uint32(b)))
	case a.kind == 'u' && a.size == 4:
		return int64(a.order.Uint32(b))
	default: // 8-byte integers
		return int64(a.order.Uint64(b))
	}
}

func (a *npyArray) float64At(i int) float64 {
	if a.kind != 'f' {
		return float64(a.int64At(i))
	}
	b := a.data[i*a.size:]
	if a.size == 4 {
		return float64(math.Float32frombits(a.order.Uint32(b)))
	}
	return math.Float64frombits(a.order.Uint64(b))
}

// ReadInt64s decodes a 1-D integer or bool NPY array.
func ReadInt64s(r io.Reader) ([]int64, error) {
	arr, err := readNPY(r)
	if err != nil {
		return nil, err
	}
	if len(arr.shape) != 1 {
		return nil, fmt.Errorf("npy: want 1-D array, got shape %v", arr.shape)
	}
	if arr.kind == 'f' {
		return nil, fmt.Errorf("npy: want integer dtype, got %q", arr.descr)
	}
	out := make([]int64, arr.n)
	for i := range out {
		out[i] = arr.int64At(i)
	}
	return out, nil
}

// ReadMatrix decodes a 2-D numeric NPY array into a float32 Matrix.
func ReadMatrix(r io.Reader) (Matrix, error) {
	arr, err := readNPY(r)
	if err != nil {
		return Matrix{}, err
	}
	if len(arr.shape) != 2 {
		return Matrix{}, fmt.Errorf("npy: want 2-D array, got shape %v", arr.shape)
	}
	m := NewMatrix(arr.shape[0], arr.shape[1])
	if len(m.Data) != arr.n || len(arr.data) != arr.n*arr.size {
		return Matrix{}, fmt.Errorf("npy: payload does not match shape %v", arr.shape)
	}
	for i := range m.Data {
		m.Data[i] = float32(arr.float64At(i))
	}
	return m, nil
}

func writeNPYHeader(w io.Writer, descr string, shape []int) error {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, shapeStr)

	// Preamble (10 bytes) + dict + padding + '\n' is a multiple of 64.
	total := 10 + len(dict) + 1
	pad := (64 - total%64) % 64
	header := dict + strings.Repeat(" ", pad) + "\n"

	var pre [10]byte
	copy(pre[:], npyMagic)
	pre[6], pre[7] = 1, 0
	binary.LittleEndian.PutUint16(pre[8:], uint16(len(header)))
	if _, err := w.Write(pre[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, header)
	return err
}

// WriteInt64s encodes values as a 1-D '<i8' NPY array.
func WriteInt64s(w io.Writer, values []int64) error {
	if err := writeNPYHeader(w, "<i8", []int{len(values)}); err != nil {
		return err
	}
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
	}
	_, err := w.Write(buf)
	return err
}

// WriteMatrix encodes m as a 2-D '<f4' NPY array.
func WriteMatrix(w io.Writer, m Matrix) error {
	if err := writeNPYHeader(w, "<f4", []int{m.Rows, m.Cols}); err != nil {
		return err
	}
	buf := make([]byte, 4*len(m.Data))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}
