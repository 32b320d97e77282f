package transport

import (
	"bytes"
	"io"
)

// unitReader 把字节流切分为输入单元：缓冲中有换行时返回到换行为止的一行，
// 否则返回最近一次读取得到的剩余数据（与一次 recv 的语义一致）。
// 每次底层读取至多 len(buf) 字节，单元长度因此有上限。
type unitReader struct {
	r          io.Reader
	buf        []byte
	start, end int
	err        error
}

func newUnitReader(r io.Reader, size int) *unitReader {
	if size <= 0 {
		size = 1
	}
	return &unitReader{r: r, buf: make([]byte, size)}
}

// Next 返回下一个单元；只有缓冲耗尽且底层读取出错时才返回错误
func (u *unitReader) Next() (string, error) {
	for {
		if u.start < u.end {
			data := u.buf[u.start:u.end]
			if i := bytes.IndexByte(data, '\n'); i >= 0 {
				u.start += i + 1
				return string(data[:i+1]), nil
			}
			u.start = u.end
			return string(data), nil
		}
		if u.err != nil {
			return "", u.err
		}
		n, err := u.r.Read(u.buf)
		u.start, u.end, u.err = 0, n, err
		if n == 0 && err == nil {
			continue
		}
	}
}
