package transport

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader 每次 Read 返回一个预设的块
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n == len(c.chunks[0]) {
		c.chunks = c.chunks[1:]
	} else {
		c.chunks[0] = c.chunks[0][n:]
	}
	return n, nil
}

func drain(t *testing.T, u *unitReader) ([]string, error) {
	t.Helper()
	var out []string
	for {
		s, err := u.Next()
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

func TestUnitReaderSplitsLines(t *testing.T) {
	u := newUnitReader(&chunkReader{chunks: []string{"hi\nhow\nare", " you\n"}}, 255)
	units, err := drain(t, u)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"hi\n", "how\n", "are", " you\n"}, units)
}

func TestUnitReaderChunkWithoutNewline(t *testing.T) {
	u := newUnitReader(&chunkReader{chunks: []string{"hi"}}, 255)
	units, err := drain(t, u)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"hi"}, units)
}

func TestUnitReaderCapsUnitSize(t *testing.T) {
	long := strings.Repeat("x", 40)
	u := newUnitReader(&chunkReader{chunks: []string{long}}, 16)
	units, _ := drain(t, u)
	require.Len(t, units, 3)
	assert.Len(t, units[0], 16)
	assert.Len(t, units[1], 16)
	assert.Len(t, units[2], 8)
}

func TestUnitReaderDataBeforeError(t *testing.T) {
	boom := errors.New("reset")
	r := io.MultiReader(strings.NewReader("last words"), iotest.ErrReader(boom))
	u := newUnitReader(iotest.DataErrReader(r), 255)
	units, err := drain(t, u)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"last words"}, units)
}
