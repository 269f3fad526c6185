package dataset

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	imagesMagic = 2051
	labelsMagic = 2049

	// maxIDXBytes bounds the payload a header may announce.
	maxIDXBytes = 1 << 30
)

// ReadIDXImages reads an IDX image file and returns one row per image with
// pixels scaled from [0,255] to [0,1].
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
func ReadIDXImages(r io.Reader) ([][]float64, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "read image header")
	}
	if header[0] != imagesMagic {
		return nil, errors.Wrapf(ErrBadMagic, "images: got %d, want %d", header[0], imagesMagic)
	}
	numImages, rows, cols := uint64(header[1]), uint64(header[2]), uint64(header[3])
	if rows == 0 || cols == 0 {
		return nil, errors.Wrapf(ErrBadHeader, "images: %dx%d pixels per image", rows, cols)
	}
	if size := rows * cols; size > maxIDXBytes || numImages*size > maxIDXBytes {
		return nil, errors.Wrapf(ErrBadHeader, "images: %d images of %dx%d exceed %d bytes", numImages, rows, cols, maxIDXBytes)
	}

	pixels := make([]byte, rows*cols)
	var images [][]float64
	for i := uint64(0); i < numImages; i++ {
		if _, err := io.ReadFull(r, pixels); err != nil {
			return nil, errors.Wrapf(err, "read image %d", i)
		}
		img := make([]float64, len(pixels))
		for j, p := range pixels {
			img[j] = float64(p) / 255.0
		}
		images = append(images, img)
	}
	return images, nil
}

// ReadIDXLabels reads an IDX label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes
func ReadIDXLabels(r io.Reader) ([]int, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "read label header")
	}
	if header[0] != labelsMagic {
		return nil, errors.Wrapf(ErrBadMagic, "labels: got %d, want %d", header[0], labelsMagic)
	}

	count := int64(header[1])
	if count > maxIDXBytes {
		return nil, errors.Wrapf(ErrBadHeader, "labels: %d labels exceed %d bytes", count, maxIDXBytes)
	}

	raw, err := io.ReadAll(io.LimitReader(r, count))
	if err != nil {
		return nil, errors.Wrap(err, "read labels")
	}
	if int64(len(raw)) != count {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "read labels: got %d of %d", len(raw), count)
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrap(err, "open")
	}
	defer f.Close()
	v, err := read(bufio.NewReader(f))
	if err != nil {
		return zero, errors.Wrap(err, path)
	}
	return v, nil
}

// LoadIDX loads a matching pair of IDX image and label files.
func LoadIDX(imagesPath, labelsPath string) (*Set, error) {
	images, err := readFile(imagesPath, ReadIDXImages)
	if err != nil {
		return nil, err
	}
	labels, err := readFile(labelsPath, ReadIDXLabels)
	if err != nil {
		return nil, err
	}
	return newSet(images, labels)
}

// LoadMNIST loads the MNIST training or test split from dir. Both the
// distribution file names (train-images-idx3-ubyte) and the dotted variant
// (train-images.idx3-ubyte) are accepted, directly in dir or in a train/ or
// test/ subdirectory.
func LoadMNIST(dir string, train bool) (*Set, error) {
	prefix, sub := "t10k", "test"
	if train {
		prefix, sub = "train", "train"
	}
	images, err := findFile(dir, sub, prefix+"-images-idx3-ubyte", prefix+"-images.idx3-ubyte")
	if err != nil {
		return nil, err
	}
	labels, err := findFile(dir, sub, prefix+"-labels-idx1-ubyte", prefix+"-labels.idx1-ubyte")
	if err != nil {
		return nil, err
	}
	return LoadIDX(images, labels)
}

func findFile(dir, sub string, names ...string) (string, error) {
	for _, d := range []string{dir, filepath.Join(dir, sub)} {
		for _, name := range names {
			p := filepath.Join(d, name)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return "", errors.Wrapf(os.ErrNotExist, "%s not found under %s", names[0], dir)
}
