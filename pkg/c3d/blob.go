package c3d

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// C3D's extract_image_features writes one binary blob per clip and layer:
// five little-endian int32 dimensions (num, channels, length, height, width)
// followed by the product of the dimensions as little-endian float32 values.

var ErrShortBlob = errors.New("c3d blob truncated")

// BlobDims are the five dimensions of a C3D feature blob.
type BlobDims [5]int32

// Count is the number of float32 values in the blob payload.
func (d BlobDims) Count() int {
	n := int64(1)
	for _, v := range d {
		n *= int64(v)
	}
	return int(n)
}

func (d BlobDims) validate() error {
	for _, v := range d {
		if v <= 0 {
			return fmt.Errorf("invalid blob dimensions %v", d)
		}
	}
	// 64 MB of floats per clip is already far beyond fc7 size
	if d.Count() > 16*1024*1024 {
		return fmt.Errorf("blob dimensions %v unreasonably large", d)
	}
	return nil
}

// ReadBlob reads a single C3D feature blob from disk.
func ReadBlob(filename string) (BlobDims, []float32, error) {
	f, err := os.Open(filename)
	if err != nil {
		return BlobDims{}, nil, err
	}
	defer f.Close()
	return readBlob(bufio.NewReader(f), filename)
}

func readBlob(r io.Reader, filename string) (BlobDims, []float32, error) {
	dims := BlobDims{}
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return BlobDims{}, nil, fmt.Errorf("%v: %w", filename, ErrShortBlob)
	}
	if err := dims.validate(); err != nil {
		return BlobDims{}, nil, fmt.Errorf("%v: %w", filename, err)
	}
	data := make([]float32, dims.Count())
	if err := binary.Read(r, binary.LittleEndian, &data); err != nil {
		return BlobDims{}, nil, fmt.Errorf("%v: %w", filename, ErrShortBlob)
	}
	return dims, data, nil
}

// WriteBlob writes a blob in the same binary layout the C3D tool uses.
// We need this for fixtures and round-trip tests; the real blobs come from
// the external extractor.
func WriteBlob(filename string, dims BlobDims, data []float32) error {
	if err := dims.validate(); err != nil {
		return err
	}
	if dims.Count() != len(data) {
		return fmt.Errorf("blob payload is %v values, dimensions %v require %v", len(data), dims, dims.Count())
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, &dims); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
