// Package downloader saves a resolved recording to disk with ranged requests,
// resuming from a partial temporary file when one exists.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/ytget/smuledl/client"
	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/internal/logger"
	"github.com/ytget/smuledl/smule/probe"
	"github.com/ytget/smuledl/types"
)

const (
	defaultChunkSizeBytes = 1 << 20 // 1MB
	temporaryFileSuffix   = ".tmp"
	copyBufferSizeBytes   = 32 * 1024 // 32KB
	op                    = "download"
)

// Progress holds information about download progress.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
}

// Downloader transfers one media file. Failed chunks are reported, not retried.
type Downloader struct {
	ProgressFunc func(Progress)

	client    *client.Client
	prober    *probe.Prober
	chunkSize int64
	limiter   *rate.Limiter
	log       *logger.ComponentLogger
}

// New creates a new downloader. A nil c gets a private default session.
// rateLimitBps caps throughput in bytes per second; 0 disables the cap.
func New(c *client.Client, progressFunc func(Progress), rateLimitBps int64) *Downloader {
	if c == nil {
		c = client.New()
	}
	d := &Downloader{
		ProgressFunc: progressFunc,
		client:       c,
		prober:       probe.New(c),
		chunkSize:    defaultChunkSizeBytes,
		log:          logger.WithComponent(logger.ComponentDownloader),
	}
	if rateLimitBps > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(rateLimitBps), copyBufferSizeBytes)
	}
	return d
}

// Download saves media to outputPath. It writes to outputPath+".tmp" and
// renames on completion; an existing .tmp file is resumed.
func (d *Downloader) Download(ctx context.Context, media types.MediaURL, outputPath string) error {
	tmpPath := outputPath + temporaryFileSuffix
	outFile, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	defer func() { _ = outFile.Close() }()

	info, err := outFile.Stat()
	if err != nil {
		return fmt.Errorf("stat temp file: %w", err)
	}
	downloaded := info.Size()

	totalSize := media.ContentLength
	if totalSize < 0 {
		if probed, perr := d.prober.Probe(ctx, media); perr == nil {
			totalSize = probed.ContentLength
		} else {
			d.log.Warn("size unknown, downloading without it", map[string]interface{}{"error": perr.Error()})
		}
	}
	if totalSize > 0 && downloaded > totalSize {
		// longer than the media, so the partial file belongs to something else
		d.log.Warn("discarding oversized partial file", map[string]interface{}{
			"partial": downloaded,
			"total":   totalSize,
		})
		if err := outFile.Truncate(0); err != nil {
			return fmt.Errorf("truncate temp file: %w", err)
		}
		downloaded = 0
	}
	d.log.Info("starting download", map[string]interface{}{
		"output":  outputPath,
		"resumed": downloaded,
		"total":   totalSize,
	})

	for totalSize <= 0 || downloaded < totalSize {
		start := downloaded
		end := start + d.chunkSize - 1
		if totalSize > 0 && end >= totalSize {
			end = totalSize - 1
		}

		n, done, err := d.fetchRange(ctx, media.URL, outFile, start, end, totalSize)
		if err != nil {
			return err
		}
		if done {
			// server ignored the range and sent the whole file
			downloaded = n
			break
		}
		if n == 0 {
			if totalSize > 0 {
				return fmt.Errorf("download stalled at %d of %d bytes", downloaded, totalSize)
			}
			break
		}
		downloaded += n
		if totalSize <= 0 && n < d.chunkSize {
			break
		}
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if fi, err := os.Stat(tmpPath); err == nil && fi.Size() == 0 {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("empty download: 0 bytes written")
	}
	d.log.Info("download complete", map[string]interface{}{"output": outputPath, "bytes": downloaded})
	return os.Rename(tmpPath, outputPath)
}

// fetchRange copies bytes start..end into out. done reports that the server
// answered 200 with the full body, which replaces anything written before.
func (d *Downloader) fetchRange(ctx context.Context, rawURL string, out *os.File, start, end, totalSize int64) (n int64, done bool, err error) {
	req, err := d.client.NewRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return 0, false, errs.Transport(op, rawURL, err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Range", "bytes="+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10))

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, false, errs.Transport(op, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		if err := out.Truncate(0); err != nil {
			return 0, false, fmt.Errorf("truncate temp file: %w", err)
		}
		if _, err := out.Seek(0, io.SeekStart); err != nil {
			return 0, false, fmt.Errorf("rewind temp file: %w", err)
		}
		if totalSize <= 0 {
			totalSize = resp.ContentLength
		}
		n, err := d.copy(ctx, out, resp.Body, 0, totalSize)
		return n, true, err
	case http.StatusRequestedRangeNotSatisfiable:
		// past the end of an object of unknown size
		return 0, false, nil
	default:
		body, _ := client.ReadBody(resp)
		return 0, false, errs.HTTPStatus(op, rawURL, resp.StatusCode, body)
	}

	n, err = d.copy(ctx, out, resp.Body, start, totalSize)
	return n, false, err
}

func (d *Downloader) copy(ctx context.Context, out io.Writer, body io.Reader, already, totalSize int64) (int64, error) {
	buf := make([]byte, copyBufferSizeBytes)
	var written int64
	for {
		nr, rerr := body.Read(buf)
		if nr > 0 {
			if _, werr := out.Write(buf[:nr]); werr != nil {
				return written, fmt.Errorf("write chunk: %w", werr)
			}
			written += int64(nr)
			d.report(already+written, totalSize)
			if d.limiter != nil {
				if err := d.limiter.WaitN(ctx, nr); err != nil {
					return written, err
				}
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read body: %w", rerr)
		}
	}
}

func (d *Downloader) report(downloaded, total int64) {
	if d.ProgressFunc == nil {
		return
	}
	p := Progress{TotalSize: total, DownloadedSize: downloaded}
	if total > 0 {
		p.Percent = float64(downloaded) / float64(total) * 100
	}
	d.ProgressFunc(p)
}
