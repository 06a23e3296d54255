package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	frame []byte
	err   error
}

func drain(t *testing.T, ex *Extractor) []result {
	t.Helper()
	var ret []result
	for {
		frame, err := ex.Next()
		if errors.Is(err, ErrNeedMore) {
			return ret
		}
		if err != nil {
			var ferr *FramingError
			require.True(t, errors.As(err, &ferr), "unexpected error type %T", err)
		}
		ret = append(ret, result{frame, err})
	}
}

func extractChunked(t *testing.T, opts Options, stream []byte, chunks []int) []result {
	t.Helper()
	ex := NewExtractor(opts)
	var ret []result
	for _, n := range chunks {
		ex.Feed(stream[:n])
		stream = stream[n:]
		ret = append(ret, drain(t, ex)...)
	}
	ex.Feed(stream)
	return append(ret, drain(t, ex)...)
}

func payload(rng *rand.Rand, n int) []byte {
	p := make([]byte, n)
	rng.Read(p)
	return p
}

func mustEncode(t *testing.T, p []byte, opts Options) []byte {
	t.Helper()
	buf, err := Encode(p, opts)
	require.NoError(t, err)
	return buf
}

func header(size uint32) []byte {
	h := []byte{SyncByte, SyncByte, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(h[SyncLength:], size)
	return h
}

func TestExtractSingleFrame(t *testing.T) {
	opts := DefaultOptions()
	p := bytes.Repeat([]byte{0x5a}, 40)

	ex := NewExtractor(opts)
	ex.Feed(mustEncode(t, p, opts))

	frame, err := ex.Next()
	require.NoError(t, err)
	assert.Equal(t, p, frame)

	_, err = ex.Next()
	assert.Equal(t, ErrNeedMore, err)
	assert.Equal(t, int64(HeaderLength+40), ex.Offset())
	assert.Equal(t, 0, ex.Buffered())
	assert.Equal(t, int64(0), ex.Skipped())
}

func TestExtractPartialFrameWaits(t *testing.T) {
	opts := DefaultOptions()
	buf := mustEncode(t, bytes.Repeat([]byte{1}, 30), opts)

	ex := NewExtractor(opts)
	for i := 0; i < len(buf)-1; i++ {
		ex.Feed(buf[i : i+1])
		_, err := ex.Next()
		require.Equal(t, ErrNeedMore, err, "byte %d", i)
	}
	ex.Feed(buf[len(buf)-1:])
	frame, err := ex.Next()
	require.NoError(t, err)
	assert.Len(t, frame, 30)
}

func TestExtractSkipsGarbage(t *testing.T) {
	opts := DefaultOptions()
	p1 := bytes.Repeat([]byte{1}, 24)
	p2 := bytes.Repeat([]byte{2}, 25)

	var stream []byte
	stream = append(stream, 0x00, 0x13, 0x37)
	stream = append(stream, mustEncode(t, p1, opts)...)
	stream = append(stream, 0x42, 0xAA, 0x01)
	stream = append(stream, mustEncode(t, p2, opts)...)

	got := extractChunked(t, opts, stream, nil)
	require.Len(t, got, 2)
	assert.Equal(t, p1, got[0].frame)
	assert.Equal(t, p2, got[1].frame)
}

func TestExtractKeepsTrailingSyncByte(t *testing.T) {
	opts := DefaultOptions()
	buf := mustEncode(t, bytes.Repeat([]byte{7}, 24), opts)

	ex := NewExtractor(opts)
	ex.Feed([]byte{0x01, 0x02, SyncByte})
	_, err := ex.Next()
	require.Equal(t, ErrNeedMore, err)
	assert.Equal(t, 1, ex.Buffered())
	assert.Equal(t, int64(2), ex.Skipped())

	// The retained byte and the next chunk's first byte form the marker.
	ex.Feed(buf[1:])
	frame, err := ex.Next()
	require.NoError(t, err)
	assert.Len(t, frame, 24)
}

func TestExtractOversizedThenValid(t *testing.T) {
	opts := DefaultOptions()
	good := bytes.Repeat([]byte{9}, 32)

	var stream []byte
	stream = append(stream, header(uint32(opts.MaxSize)+1)...)
	stream = append(stream, mustEncode(t, good, opts)...)

	for _, chunks := range [][]int{nil, {1}, {3, 4}, {6}, {7, 1, 1}} {
		got := extractChunked(t, opts, stream, chunks)
		require.Len(t, got, 2, "chunks %v", chunks)

		var ferr *FramingError
		require.True(t, errors.As(got[0].err, &ferr))
		assert.Equal(t, int64(0), ferr.Offset)
		assert.Equal(t, uint32(opts.MaxSize)+1, ferr.Length)

		require.NoError(t, got[1].err)
		assert.Equal(t, good, got[1].frame)
	}
}

func TestExtractUndersized(t *testing.T) {
	opts := DefaultOptions()
	good := bytes.Repeat([]byte{3}, 24)

	stream := append(header(uint32(opts.MinSize)-1), mustEncode(t, good, opts)...)
	got := extractChunked(t, opts, stream, nil)
	require.Len(t, got, 2)
	assert.Error(t, got[0].err)
	assert.Equal(t, good, got[1].frame)
}

func TestExtractCorruptHeaderDoesNotEatNextFrame(t *testing.T) {
	opts := DefaultOptions()
	good := bytes.Repeat([]byte{4}, 24)

	// A marker immediately followed by the real frame's marker.
	stream := append([]byte{SyncByte, SyncByte}, mustEncode(t, good, opts)...)
	got := extractChunked(t, opts, stream, nil)

	var frames [][]byte
	for _, r := range got {
		if r.err == nil {
			frames = append(frames, r.frame)
		}
	}
	assert.Equal(t, [][]byte{good}, frames)
}

func TestExtractCRC(t *testing.T) {
	opts := DefaultOptions()
	opts.Checksum = ChecksumCRC16
	rng := rand.New(rand.NewSource(3))
	p1, p2 := payload(rng, 50), payload(rng, 60)

	bad := mustEncode(t, p1, opts)
	bad[HeaderLength+5] ^= 0xff

	stream := append(mustEncode(t, p1, opts), bad...)
	stream = append(stream, mustEncode(t, p2, opts)...)

	got := extractChunked(t, opts, stream, nil)
	var frames [][]byte
	var errs int
	for _, r := range got {
		if r.err != nil {
			errs++
			continue
		}
		frames = append(frames, r.frame)
	}
	assert.Equal(t, [][]byte{p1, p2}, frames)
	assert.GreaterOrEqual(t, errs, 1)
}

func TestExtractChunkingInvariance(t *testing.T) {
	for _, checksum := range []Checksum{ChecksumNone, ChecksumCRC16} {
		opts := DefaultOptions()
		opts.Checksum = checksum
		rng := rand.New(rand.NewSource(42))

		var stream []byte
		for i := 0; i < 40; i++ {
			switch rng.Intn(5) {
			case 0:
				stream = append(stream, payload(rng, rng.Intn(8))...)
			case 1:
				stream = append(stream, header(uint32(rng.Intn(1<<16)))...)
			default:
				stream = append(stream, mustEncode(t, payload(rng, 24+rng.Intn(200)), opts)...)
			}
		}

		want := extractChunked(t, opts, stream, nil)
		require.NotEmpty(t, want)

		ones := make([]int, len(stream))
		for i := range ones {
			ones[i] = 1
		}
		assert.Equal(t, want, extractChunked(t, opts, stream, ones), "byte at a time, checksum %s", checksum)

		for trial := 0; trial < 50; trial++ {
			var chunks []int
			for left := len(stream); left > 0; {
				n := rng.Intn(64)
				if n > left {
					n = left
				}
				chunks = append(chunks, n)
				left -= n
			}
			require.Equal(t, want, extractChunked(t, opts, stream, chunks), "trial %d chunks %v", trial, chunks)
		}
	}
}

func TestEncode(t *testing.T) {
	opts := DefaultOptions()

	buf := mustEncode(t, make([]byte, 24), opts)
	assert.Equal(t, []byte{0xAA, 0xAA, 24, 0, 0, 0}, buf[:HeaderLength])
	assert.Len(t, buf, HeaderLength+24)

	_, err := Encode(make([]byte, 23), opts)
	assert.Error(t, err)
	_, err = Encode(make([]byte, opts.MaxSize+1), opts)
	assert.Error(t, err)

	opts.Checksum = ChecksumCRC16
	buf = mustEncode(t, []byte("123456789012345678901234"), opts)
	assert.Len(t, buf, HeaderLength+24+CRCLength)
	assert.Equal(t, checksum([]byte("123456789012345678901234")), binary.BigEndian.Uint16(buf[len(buf)-2:]))

	var w bytes.Buffer
	require.NoError(t, NewEncoder(&w, opts).Encode(make([]byte, 30)))
	assert.Equal(t, HeaderLength+30+CRCLength, w.Len())
}

func TestCRC16Modbus(t *testing.T) {
	// Standard check value for CRC-16/MODBUS.
	assert.Equal(t, uint16(0x4B37), checksum([]byte("123456789")))
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{MinSize: 0, MaxSize: 10}.Validate())
	assert.Error(t, Options{MinSize: 10, MaxSize: 5}.Validate())
	assert.Error(t, Options{MinSize: 1, MaxSize: 5, Checksum: "md5"}.Validate())
}
