package store

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/ssargent/strata/pkg/codec"
)

const (
	defaultDumpBuffer = 64 * 1024
	maxFrameSize      = 1 << 30
)

// DumpWriter appends raw entries to a dump file as CRC-checked frames.
type DumpWriter struct {
	file   *os.File
	writer *bufio.Writer
	path   string
	mutex  sync.Mutex
	offset int64
}

// CreateDump creates or truncates the dump file at path.
func CreateDump(path string) (*DumpWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &DumpWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, defaultDumpBuffer),
		path:   path,
	}, nil
}

// Put appends a key/value pair and returns the offset its frame starts at.
func (w *DumpWriter) Put(key, value []byte) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	data, err := codec.NewFrame(key, value).MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.writer.Write(data)
	if err != nil {
		return 0, err
	}
	offset := w.offset
	w.offset += int64(n)
	return offset, nil
}

// Sync flushes buffered frames and fsyncs the file.
func (w *DumpWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *DumpWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close syncs and closes the file.
func (w *DumpWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// Size returns the number of bytes written so far.
func (w *DumpWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path.
func (w *DumpWriter) Path() string { return w.path }

// DumpReader reads the frames of a dump file in order.
type DumpReader struct {
	file   *os.File
	reader *bufio.Reader
	offset int64
}

// OpenDump opens the dump file at path for reading.
func OpenDump(path string) (*DumpReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &DumpReader{file: file, reader: bufio.NewReaderSize(file, defaultDumpBuffer)}, nil
}

// ReadNext returns the next frame, or io.EOF after the last one. A truncated
// or damaged frame is ErrCorruption.
func (r *DumpReader) ReadNext() (*codec.Frame, error) {
	header := make([]byte, codec.FrameHeaderSize)
	n, err := io.ReadFull(r.reader, header)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return nil, errors.Wrapf(ErrCorruption, "truncated header at offset %d", r.offset)
	}
	if err != nil {
		return nil, err
	}

	var hdr codec.Frame
	if err := hdr.UnmarshalBinary(header); err != nil && !errors.Is(err, codec.ErrEndOfBuffer) {
		return nil, err
	}
	size := uint64(codec.FrameHeaderSize) + uint64(hdr.KeySize) + uint64(hdr.ValueSize)
	if size > maxFrameSize {
		return nil, errors.Wrapf(ErrCorruption, "frame of %d bytes at offset %d", size, r.offset)
	}
	data := make([]byte, size)
	copy(data, header)
	if _, err := io.ReadFull(r.reader, data[n:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrCorruption, "truncated frame at offset %d", r.offset)
		}
		return nil, err
	}

	f := new(codec.Frame)
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrapf(ErrCorruption, "offset %d: %v", r.offset, err)
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Wrapf(ErrCorruption, "offset %d: %v", r.offset, err)
	}
	r.offset += int64(len(data))
	return f, nil
}

// Offset returns the offset of the next frame.
func (r *DumpReader) Offset() int64 { return r.offset }

// Close closes the file.
func (r *DumpReader) Close() error { return r.file.Close() }

// Export writes every entry of the table to w and returns how many there
// were. w is not synced.
func (tx *Tx) Export(w *DumpWriter) (int, error) {
	var (
		n    int
		werr error
	)
	err := tx.ForEach(nil, func(k, v []byte) bool {
		if _, werr = w.Put(k, v); werr != nil {
			return false
		}
		n++
		return true
	})
	if werr != nil {
		return n, werr
	}
	return n, err
}

// Import stores every frame read from r, replacing existing entries with the
// same keys, and returns how many there were.
func (tx *Tx) Import(r *DumpReader) (int, error) {
	n := 0
	for {
		f, err := r.ReadNext()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := tx.tbl.Put(f.Key, f.Value); err != nil {
			return n, err
		}
		n++
	}
}

// Dump writes the whole table to a dump file at path in one read-only
// transaction. The entries go to a temporary file next to path that replaces
// it only once the dump is complete, so a failed dump leaves path untouched.
func (s *Store) Dump(ctx context.Context, path string) (_ int, err error) {
	tmp := path + ".tmp"
	w, err := CreateDump(tmp)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	var n int
	err = s.View(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.Export(w)
		return err
	})
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, errors.Wrap(err, "replacing dump")
	}
	return n, nil
}

// Restore loads a dump file written by Dump in one writable transaction.
// Either every entry is stored or none is.
func (s *Store) Restore(ctx context.Context, path string) (int, error) {
	r, err := OpenDump(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var n int
	err = s.Update(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.Import(r)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Infof("restored %d entries from %s", n, path)
	return n, nil
}
