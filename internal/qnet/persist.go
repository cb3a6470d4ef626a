package qnet

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"

	"github.com/danielpatrickdp/adaptive-layout/internal/ports"
)

// #region format
// Persisted layout: magic, train steps (uint64), blob count (uint32), then
// each blob as a uint32 length followed by gonum's MarshalBinary bytes.
// Blob order is online w1 b1 w2 b2, then target w1 b1 w2 b2.
var magic = []byte("QNET1")

// ErrCorrupt is returned by Load when the stored blob cannot be decoded.
var ErrCorrupt = errors.New("qnet: corrupt weights blob")

const blobsPerNet = 4

func marshalNet(n *Network) ([][]byte, error) {
	parts := []encoding.BinaryMarshaler{n.w1, n.b1, n.w2, n.b2}
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshal weights: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func unmarshalNet(blobs [][]byte, in, hidden, out int) (*Network, error) {
	n := &Network{
		in: in, hidden: hidden, out: out,
		w1: new(mat.Dense), b1: new(mat.VecDense),
		w2: new(mat.Dense), b2: new(mat.VecDense),
	}
	parts := []encoding.BinaryUnmarshaler{n.w1, n.b1, n.w2, n.b2}
	for i, p := range parts {
		if err := p.UnmarshalBinary(blobs[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	if r, c := n.w1.Dims(); r != hidden || c != in {
		return nil, fmt.Errorf("%w: w1 is %dx%d, want %dx%d", ErrShapeMismatch, r, c, hidden, in)
	}
	if n.b1.Len() != hidden {
		return nil, fmt.Errorf("%w: b1 has %d, want %d", ErrShapeMismatch, n.b1.Len(), hidden)
	}
	if r, c := n.w2.Dims(); r != out || c != hidden {
		return nil, fmt.Errorf("%w: w2 is %dx%d, want %dx%d", ErrShapeMismatch, r, c, out, hidden)
	}
	if n.b2.Len() != out {
		return nil, fmt.Errorf("%w: b2 has %d, want %d", ErrShapeMismatch, n.b2.Len(), out)
	}
	return n, nil
}

// #endregion format

// #region save-load
// MarshalBinary encodes both networks and the train step counter.
func (l *Learner) MarshalBinary() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var blobs [][]byte
	for _, n := range []*Network{l.online, l.target} {
		b, err := marshalNet(n)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, b...)
	}

	var buf bytes.Buffer
	buf.Write(magic)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(l.trainSteps))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(blobs)))
	for _, b := range blobs {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(b)))
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces both networks. The learner is unchanged on error.
func (l *Learner) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil || !bytes.Equal(head, magic) {
		return fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	var steps uint64
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &steps); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if count != 2*blobsPerNet {
		return fmt.Errorf("%w: %d blobs, want %d", ErrCorrupt, count, 2*blobsPerNet)
	}
	blobs := make([][]byte, count)
	for i := range blobs {
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if int64(size) > int64(r.Len()) {
			return fmt.Errorf("%w: blob %d truncated", ErrCorrupt, i)
		}
		blobs[i] = make([]byte, size)
		if _, err := io.ReadFull(r, blobs[i]); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}

	cfg := l.cfg
	online, err := unmarshalNet(blobs[:blobsPerNet], cfg.StateSize, cfg.Hidden, cfg.Actions)
	if err != nil {
		return err
	}
	target, err := unmarshalNet(blobs[blobsPerNet:], cfg.StateSize, cfg.Hidden, cfg.Actions)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.online, l.target, l.trainSteps = online, target, int(steps)
	l.mu.Unlock()
	return nil
}

// Save writes both networks to store under key.
func (l *Learner) Save(store ports.BlobStore, key string) error {
	data, err := l.MarshalBinary()
	if err != nil {
		return err
	}
	if err := store.SaveBlob(key, data); err != nil {
		return fmt.Errorf("save weights %q: %w", key, err)
	}
	return nil
}

// ErrNoWeights is returned by Load when nothing is stored under the key.
var ErrNoWeights = errors.New("qnet: no stored weights")

// Load restores both networks from store. Any error leaves the current
// weights in place; callers treat it as a cold start.
func (l *Learner) Load(store ports.BlobStore, key string) error {
	data, err := store.LoadBlob(key)
	if err != nil {
		return fmt.Errorf("load weights %q: %w", key, err)
	}
	if data == nil {
		return ErrNoWeights
	}
	return l.UnmarshalBinary(data)
}

// #endregion save-load
