package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Stream layout: magic, version, codec name length (1B), codec name, then
// records, each prefixed with its uvarint length.
const (
	streamMagic   = "TIOCAP"
	streamVersion = 1

	// MaxRecordSize bounds a single encoded record.
	MaxRecordSize = 64 * 1024
)

var (
	ErrBadMagic       = errors.New("capture: not a capture stream")
	ErrBadVersion     = errors.New("capture: unsupported stream version")
	ErrRecordTooLarge = errors.New("capture: record too large")
)

// Writer appends records to a capture stream. It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	bw    *bufio.Writer
	dst   io.Writer
	codec Codec
	count uint64
}

// NewWriter writes the stream header for codec c to w.
func NewWriter(w io.Writer, c Codec) (*Writer, error) {
	name := c.Name()
	if len(name) > 0xff {
		return nil, fmt.Errorf("capture: codec name %q too long", name)
	}

	bw := bufio.NewWriter(w)
	hdr := make([]byte, 0, len(streamMagic)+2+len(name))
	hdr = append(hdr, streamMagic...)
	hdr = append(hdr, streamVersion, byte(len(name)))
	hdr = append(hdr, name...)
	if _, err := bw.Write(hdr); err != nil {
		return nil, err
	}
	return &Writer{bw: bw, dst: w, codec: c}, nil
}

// Write encodes and appends r.
func (w *Writer) Write(r Record) error {
	data, err := w.codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("capture: encode %s record: %w", w.codec.Name(), err)
	}
	if len(data) > MaxRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(data))
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(data)))

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.bw.Write(lenBuf[:n]); err != nil {
		return err
	}
	if _, err := w.bw.Write(data); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Flush writes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bw.Flush()
}

// Close flushes and closes the underlying writer when it is an io.Closer.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if c, ok := w.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reader reads records from a capture stream.
type Reader struct {
	br    *bufio.Reader
	codec Codec
}

// NewReader reads the stream header and selects the codec from reg.
func NewReader(r io.Reader, reg *Registry) (*Reader, error) {
	br := bufio.NewReader(r)

	hdr := make([]byte, len(streamMagic)+2)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if string(hdr[:len(streamMagic)]) != streamMagic {
		return nil, ErrBadMagic
	}
	if v := hdr[len(streamMagic)]; v != streamVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	name := make([]byte, hdr[len(streamMagic)+1])
	if _, err := io.ReadFull(br, name); err != nil {
		return nil, fmt.Errorf("capture: read codec name: %w", err)
	}
	c, err := reg.Get(string(name))
	if err != nil {
		return nil, err
	}
	return &Reader{br: br, codec: c}, nil
}

// Codec returns the codec the stream was written with.
func (r *Reader) Codec() Codec { return r.codec }

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	size, err := binary.ReadUvarint(r.br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("capture: read record length: %w", err)
	}
	if size > MaxRecordSize {
		return Record{}, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r.br, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, fmt.Errorf("capture: read record: %w", err)
	}
	return r.codec.Unmarshal(data)
}
