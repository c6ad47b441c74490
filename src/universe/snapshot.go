package universe

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/pkg/errors"
)

/*
	Snapshot binary format, little endian:

	magic "GOLS" | version u8 | rows u64 | columns u64 | cells (1 byte each, 0 dead 1 alive) | crc32 IEEE of everything before
*/

const (
	snapshotVersion = 1
	headerLen       = 4 + 1 + 8 + 8
	checksumLen     = 4
)

var snapshotMagic = []byte("GOLS")

//Snapshot is an immutable projection of the universe cells
//corpse heat and the generation counter are not part of it
type Snapshot struct {
	rows    int
	columns int
	cells   []Cell
}

//NewSnapshot deep-copies the cells of u
func NewSnapshot(u *Universe) *Snapshot {
	return &Snapshot{
		rows:    u.rows,
		columns: u.columns,
		cells:   append([]Cell(nil), u.cells...),
	}
}

func (s *Snapshot) Rows() int { return s.rows }

func (s *Snapshot) Columns() int { return s.columns }

//Get returns the point at row, column, corpse heat is always zero
func (s *Snapshot) Get(row int, column int) (Point, bool) {
	if row < 0 || column < 0 || row >= s.rows || column >= s.columns {
		return Point{}, false
	}
	return NewPoint(row, column, s.cells[row*s.columns+column], 0), true
}

//Set always fails, snapshots are read-only
func (s *Snapshot) Set(_ int, _ int, _ Cell) (Point, error) {
	return Point{}, ErrReadOnly
}

func (s *Snapshot) AliveCount() int {
	return countAlive(s.cells)
}

//Universe rebuilds a universe from the snapshot
//the new universe starts at generation 0 with zero heat and default rates
//fails only for a zero Snapshot that was never built from a universe or data
func (s *Snapshot) Universe() (*Universe, error) {
	return FromSnapshot(s, nil)
}

//FromSnapshot rebuilds a universe from s with the rates and engine of o
//the dimensions of o are ignored, nil o means DefaultUniverseOptions
func FromSnapshot(s *Snapshot, o *Options) (*Universe, error) {
	if s == nil {
		return nil, errors.Wrap(ErrInvalidFormat, "no snapshot")
	}
	opts := DefaultUniverseOptions
	if o != nil {
		opts = *o
	}
	opts.Rows, opts.Columns = s.rows, s.columns
	u, err := New(&opts)
	if err != nil {
		return nil, err
	}
	copy(u.cells, s.cells)
	return u, nil
}

//Serialize encodes the snapshot
func (s *Snapshot) Serialize() []byte {
	var b bytes.Buffer
	b.Grow(headerLen + len(s.cells) + checksumLen)
	b.Write(snapshotMagic)
	b.WriteByte(snapshotVersion)
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(s.rows))
	b.Write(n[:])
	binary.LittleEndian.PutUint64(n[:], uint64(s.columns))
	b.Write(n[:])
	for _, c := range s.cells {
		b.WriteByte(byte(c))
	}
	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc32.ChecksumIEEE(b.Bytes()))
	b.Write(sum[:])
	return b.Bytes()
}

//Deserialize decodes data written by Serialize
//any malformed input yields an error matching ErrInvalidFormat
func Deserialize(data []byte) (*Snapshot, error) {
	if len(data) < headerLen+checksumLen {
		return nil, errors.Wrapf(ErrInvalidFormat, "%d bytes is too short", len(data))
	}
	if !bytes.Equal(data[:4], snapshotMagic) {
		return nil, errors.Wrap(ErrInvalidFormat, "bad magic")
	}
	if v := data[4]; v != snapshotVersion {
		return nil, errors.Wrapf(ErrInvalidFormat, "unsupported version %d", v)
	}
	rows := binary.LittleEndian.Uint64(data[5:13])
	columns := binary.LittleEndian.Uint64(data[13:21])
	if rows == 0 || columns == 0 || !fits(rows, columns) {
		return nil, errors.Wrapf(ErrInvalidFormat, "invalid dimensions %d x %d", rows, columns)
	}
	size := int(rows * columns)
	if len(data) != headerLen+size+checksumLen {
		return nil, errors.Wrapf(ErrInvalidFormat, "%d bytes for %d x %d cells", len(data), rows, columns)
	}
	body := data[:headerLen+size]
	if binary.LittleEndian.Uint32(data[headerLen+size:]) != crc32.ChecksumIEEE(body) {
		return nil, errors.Wrap(ErrInvalidFormat, "checksum mismatch")
	}
	cells := make([]Cell, size)
	for i, c := range body[headerLen:] {
		if c > byte(Alive) {
			return nil, errors.Wrapf(ErrInvalidFormat, "invalid cell value %d at %d", c, i)
		}
		cells[i] = Cell(c)
	}
	return &Snapshot{rows: int(rows), columns: int(columns), cells: cells}, nil
}

func (s *Snapshot) MarshalBinary() ([]byte, error) {
	return s.Serialize(), nil
}
