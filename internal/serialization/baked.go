package serialization

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/annel0/voxel-core/internal/vec"
	"github.com/annel0/voxel-core/internal/voxel"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Формат запечённого файла (little-endian):
//
//	8 bytes | uint64 | хеш исходной формы (ShapeHash)
//	4 bytes | uint32 | длина данных
//	n bytes |        | zstd(cbor(bakedRecord))

const maxBakedPayload = 256 << 20

// bakedRecord - представление voxel.BakedInfo на диске
type bakedRecord struct {
	Size       [3]int   `cbor:"1,keyasint"`
	SolidCount int      `cbor:"2,keyasint"`
	HasSolid   bool     `cbor:"3,keyasint"`
	SolidMin   [3]int   `cbor:"4,keyasint"`
	SolidMax   [3]int   `cbor:"5,keyasint"`
	HeightMap  []int32  `cbor:"6,keyasint"`
	ColorUsage []uint32 `cbor:"7,keyasint"`
}

var (
	bakedEncMode cbor.EncMode
	zstdEncoder  *zstd.Encoder
	zstdDecoder  *zstd.Decoder
)

func init() {
	var err error
	bakedEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("serialization: CBOR encoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("serialization: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("serialization: zstd decoder initialization failed: " + err.Error())
	}
}

// SaveBakedFile вычисляет производные данные формы и пишет их вместе с хешем.
// Результат также сохраняется в shape.Baked. w не закрывается.
func SaveBakedFile(shape *voxel.Shape, hash uint64, w io.Writer) error {
	info := shape.ComputeBake()
	shape.Baked = info

	size := shape.Size()
	rec := bakedRecord{
		Size:       [3]int{size.X, size.Y, size.Z},
		SolidCount: info.SolidCount,
		HasSolid:   info.HasSolid,
		SolidMin:   [3]int{info.SolidBounds.Min.X, info.SolidBounds.Min.Y, info.SolidBounds.Min.Z},
		SolidMax:   [3]int{info.SolidBounds.Max.X, info.SolidBounds.Max.Y, info.SolidBounds.Max.Z},
		HeightMap:  info.HeightMap,
		ColorUsage: info.ColorUsage,
	}
	raw, err := bakedEncMode.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode baked data: %w", err)
	}
	payload := zstdEncoder.EncodeAll(raw, nil)

	buf := make([]byte, 8+4+len(payload))
	var cursor uint32
	WriteUint64(buf[cursor:], hash, &cursor)
	WriteUint32(buf[cursor:], uint32(len(payload)), &cursor)
	WriteBytes(buf[cursor:], payload, &cursor)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write baked file: %w", err)
	}
	return nil
}

// LoadBakedFile читает запечённый файл и, если хеш совпадает с expectedHash,
// заполняет shape.Baked. При несовпадении возвращается ErrHashMismatch,
// форма не изменяется. r не закрывается.
func LoadBakedFile(shape *voxel.Shape, expectedHash uint64, r io.Reader) error {
	var head [12]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: baked header", ErrTruncated)
		}
		return err
	}

	hash := binary.LittleEndian.Uint64(head[0:8])
	if hash != expectedHash {
		return fmt.Errorf("%w: stored %016x, expected %016x", ErrHashMismatch, hash, expectedHash)
	}

	n := binary.LittleEndian.Uint32(head[8:12])
	if n > maxBakedPayload {
		return fmt.Errorf("%w: payload of %d bytes", ErrInvalidBake, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("%w: baked payload", ErrTruncated)
	}

	raw, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBake, err)
	}
	var rec bakedRecord
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBake, err)
	}

	size := shape.Size()
	if rec.Size != [3]int{size.X, size.Y, size.Z} || len(rec.HeightMap) != size.X*size.Z {
		return fmt.Errorf("%w: baked for %v, shape is %v", ErrInvalidBake, rec.Size, size)
	}

	shape.Baked = &voxel.BakedInfo{
		SolidCount:  rec.SolidCount,
		HasSolid:    rec.HasSolid,
		SolidBounds: vec.Box{Min: vec.Vec3{X: rec.SolidMin[0], Y: rec.SolidMin[1], Z: rec.SolidMin[2]}, Max: vec.Vec3{X: rec.SolidMax[0], Y: rec.SolidMax[1], Z: rec.SolidMax[2]}},
		HeightMap:   rec.HeightMap,
		ColorUsage:  rec.ColorUsage,
	}
	return nil
}
