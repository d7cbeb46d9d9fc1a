package indexstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Matrix artifact format, little-endian: dimensions (uint32), row count
// (uint32), then count*dimensions float32 values in row order.

func writeMatrix(path string, vectors [][]float32) error {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	for i, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("write matrix: row %d has %d values, expected %d", i, len(vec), dims)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create matrix file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, uint32(dims)); err != nil {
		return fmt.Errorf("write matrix dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vectors))); err != nil {
		return fmt.Errorf("write matrix count: %w", err)
	}
	buf := make([]byte, 4)
	for _, vec := range vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("write matrix row: %w", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush matrix file: %w", err)
	}
	return nil
}

func readMatrix(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open matrix file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var dims, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("read matrix dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read matrix count: %w", err)
	}

	vectors := make([][]float32, count)
	rowBytes := make([]byte, int(dims)*4)
	for i := range vectors {
		if _, err := io.ReadFull(r, rowBytes); err != nil {
			return nil, fmt.Errorf("read matrix row %d: %w", i, err)
		}
		row := make([]float32, dims)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(rowBytes[j*4 : (j+1)*4]))
		}
		vectors[i] = row
	}
	return vectors, nil
}
