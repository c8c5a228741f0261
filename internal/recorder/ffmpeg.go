package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rbright/lingua/internal/capability"
)

const ffmpegStopTimeout = 3 * time.Second

// FFmpegEncoder pipes PCM into an ffmpeg child process and collects the
// container bytes it writes to stdout.
type FFmpegEncoder struct {
	mimeType string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer

	mu  sync.Mutex
	out bytes.Buffer

	readDone chan error

	closeOnce sync.Once
	closeErr  error
}

// StartFFmpegEncoder launches ffmpeg reading raw PCM from stdin.
func StartFFmpegEncoder(ffmpegPath string, format capability.Format, codec string, sampleRate int) (*FFmpegEncoder, error) {
	if codec == "" && len(format.Codecs) > 0 {
		codec = format.Codecs[0]
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	}
	args = append(args, format.FFmpegArgs(codec)...)
	args = append(args, "-flush_packets", "1", "pipe:1")

	cmd := exec.Command(ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create ffmpeg stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	enc := &FFmpegEncoder{
		mimeType: format.MIMEType,
		cmd:      cmd,
		stdin:    stdin,
		stderr:   &stderr,
		readDone: make(chan error, 1),
	}
	go enc.pump(stdout)
	return enc, nil
}

func (e *FFmpegEncoder) pump(stdout io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			e.mu.Lock()
			e.out.Write(buf[:n])
			e.mu.Unlock()
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				err = nil
			}
			e.readDone <- err
			return
		}
	}
}

func (e *FFmpegEncoder) MIMEType() string { return e.mimeType }

func (e *FFmpegEncoder) Write(pcm []byte) error {
	if _, err := e.stdin.Write(pcm); err != nil {
		return fmt.Errorf("write ffmpeg stdin: %w", err)
	}
	return nil
}

func (e *FFmpegEncoder) Flush() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out.Len() == 0 {
		return nil, nil
	}
	out := append([]byte(nil), e.out.Bytes()...)
	e.out.Reset()
	return out, nil
}

// Close ends the PCM input, waits for ffmpeg to write the container trailer
// and exit, and returns the remaining bytes.
func (e *FFmpegEncoder) Close() ([]byte, error) {
	e.closeOnce.Do(func() {
		_ = e.stdin.Close()

		// stdout must be drained before Wait closes the pipe.
		var readErr error
		select {
		case readErr = <-e.readDone:
		case <-time.After(ffmpegStopTimeout):
			if e.cmd.Process != nil {
				_ = e.cmd.Process.Kill()
			}
			readErr = <-e.readDone
		}
		waitErr := e.cmd.Wait()

		switch {
		case waitErr != nil:
			e.closeErr = fmt.Errorf("ffmpeg exited: %w%s", waitErr, e.stderrSuffix())
		case readErr != nil:
			e.closeErr = fmt.Errorf("read ffmpeg output: %w", readErr)
		}
	})

	out, _ := e.Flush()
	return out, e.closeErr
}

func (e *FFmpegEncoder) stderrSuffix() string {
	msg := string(bytes.TrimSpace(e.stderr.Bytes()))
	if msg == "" {
		return ""
	}
	return ": " + msg
}
