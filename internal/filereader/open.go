// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package filereader

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zstd"
)

const (
	CompressionNone  = ""
	CompressionGzip  = "gzip"
	CompressionBzip2 = "bzip2"
	CompressionZstd  = "zstd"
)

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var errs *multierror.Error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// DetectCompression infers the compression from the file name extension.
func DetectCompression(name string) string {
	switch {
	case strings.HasSuffix(name, ".gz"), strings.HasSuffix(name, ".gzip"):
		return CompressionGzip
	case strings.HasSuffix(name, ".bz2"), strings.HasSuffix(name, ".bzip2"):
		return CompressionBzip2
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".zstd"):
		return CompressionZstd
	}
	return CompressionNone
}

// NormalizeCompression maps the accepted aliases to a compression constant.
func NormalizeCompression(c string) (string, bool) {
	switch strings.ToLower(c) {
	case "", "none":
		return CompressionNone, true
	case "gz", "gzip":
		return CompressionGzip, true
	case "bz2", "bzip2":
		return CompressionBzip2, true
	case "zst", "zstd":
		return CompressionZstd, true
	}
	return "", false
}

// Open opens a source by path, or stdin when path is empty or "-".
// When compression is "auto" it is detected from the file extension.
// Every failure is returned as a *SourceError.
func Open(path, compression string) (io.ReadCloser, error) {
	if compression == "auto" {
		compression = DetectCompression(path)
	}
	compr, ok := NormalizeCompression(compression)
	if !ok {
		return nil, &SourceError{Path: path, Reason: "unknown compression type " + compression}
	}

	var base io.ReadCloser
	if path == "" || path == "-" {
		base = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, &SourceError{Path: path, Reason: "cannot open source", Err: err}
		}
		base = f
	}

	rc, err := decompress(base, compr)
	if err != nil {
		_ = base.Close()
		return nil, &SourceError{Path: path, Reason: "cannot create " + compr + " reader", Err: err}
	}
	return rc, nil
}

func decompress(base io.ReadCloser, compr string) (io.ReadCloser, error) {
	switch compr {
	case CompressionGzip:
		gz, err := gzip.NewReader(base)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{Reader: gz, closers: []io.Closer{gz, base}}, nil
	case CompressionBzip2:
		return &multiReadCloser{Reader: bzip2.NewReader(base), closers: []io.Closer{base}}, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(base)
		if err != nil {
			return nil, err
		}
		release := closerFunc(func() error {
			dec.Close()
			return nil
		})
		return &multiReadCloser{Reader: dec, closers: []io.Closer{release, base}}, nil
	default:
		return base, nil
	}
}
