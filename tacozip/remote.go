package tacozip

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadGhostURL reads the ghost of a remote archive with a single range
// request for its first 160 bytes. A nil client means http.DefaultClient
// and a nil ctx means context.Background.
func ReadGhostURL(ctx context.Context, client *http.Client, url string) (PointerArray, error) {
	p, err := readGhostAt(&rangeReader{ctx: ctx, client: client, url: url})
	if err != nil {
		return PointerArray{}, wrapOp("read_ghost", url, err)
	}
	return p, nil
}

// FetchPointer downloads the bytes p refers to in a remote archive. Pointers
// that run past the end of the remote file fail without downloading.
func FetchPointer(ctx context.Context, client *http.Client, url string, p Pointer) ([]byte, error) {
	if p.Length == 0 {
		return []byte{}, nil
	}
	if p.Offset > math.MaxInt64 || p.Length > math.MaxInt64-p.Offset {
		return nil, wrapOp("read_pointer", url, paramErrorf("range %d+%d overflows", p.Offset, p.Length))
	}
	b, err := fetchRange(ctx, client, url, int64(p.Offset), int64(p.Length))
	if err != nil {
		return nil, wrapOp("read_pointer", url, err)
	}
	return b, nil
}

// fetchRange reads n bytes at off, growing the result with what the server
// actually sends rather than allocating n up front.
func fetchRange(ctx context.Context, client *http.Client, url string, off, n int64) ([]byte, error) {
	res, err := getFileBody(ctx, client, url, off, off+n-1)
	if err != nil {
		return nil, err
	}
	defer res.body.Close()
	if res.total >= 0 && off+n > res.total {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "range %d+%d beyond %d bytes", off, n, res.total)
	}
	if err := res.skip(off); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	got, err := io.Copy(&buf, io.LimitReader(res.body, n))
	if err != nil {
		return nil, errors.Wrap(err, "read range")
	}
	if got != n {
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "read range: got %d of %d bytes", got, n)
	}
	return buf.Bytes(), nil
}

// rangeReader reads a remote file with HTTP range requests.
type rangeReader struct {
	ctx    context.Context
	client *http.Client
	url    string
}

func (r *rangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	res, err := getFileBody(r.ctx, r.client, r.url, off, off+int64(len(p))-1)
	if err != nil {
		return 0, err
	}
	defer res.body.Close()
	if err := res.skip(off); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(res.body, p)
	if err != nil {
		return n, errors.Wrap(shortRead(err), "read range")
	}
	return n, nil
}

type rangeBody struct {
	body    io.ReadCloser
	partial bool  // the server honoured the range
	total   int64 // size of the remote file, -1 when unknown
}

// skip discards the prefix of a full-file response so the body starts at off.
func (r *rangeBody) skip(off int64) error {
	if r.partial {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r.body, off); err != nil {
		return errors.Wrap(shortRead(err), "skip to range")
	}
	return nil
}

// getFileBody requests the inclusive byte range [from, to] of url.
func getFileBody(ctx context.Context, client *http.Client, url string, from, to int64) (*rangeBody, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	// set download ranges
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", from, to))

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	switch res.StatusCode {
	case http.StatusPartialContent:
		return &rangeBody{body: res.Body, partial: true, total: contentRangeTotal(res.Header.Get("Content-Range"))}, nil
	case http.StatusOK:
		return &rangeBody{body: res.Body, total: res.ContentLength}, nil
	case http.StatusRequestedRangeNotSatisfiable:
		res.Body.Close()
		return nil, errors.Wrapf(io.ErrUnexpectedEOF, "GET %s: range %d-%d: %s", url, from, to, res.Status)
	}
	res.Body.Close()
	return nil, errors.Errorf("GET %s: %s", url, res.Status)
}

// contentRangeTotal returns the complete length from a "bytes a-b/total"
// header, or -1.
func contentRangeTotal(h string) int64 {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(h[i+1:]), 10, 64)
	if err != nil {
		return -1
	}
	return n
}
