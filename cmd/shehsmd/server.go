package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/shecore/hsm/internal/config"
	"github.com/shecore/hsm/internal/she"
	"github.com/shecore/hsm/internal/shmbuf"
)

// server owns the daemon's end of the shared-memory transport: the
// two mmap'd regions backing the request and response Buffers.
type server struct {
	reqMem  []byte
	respMem []byte
	shm     *shmbuf.Server
}

func mapShmFile(path string, size int) ([]byte, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("truncate %s to %d bytes: %w", path, size, err)
	}
	mem, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return mem, nil
}

func newServer(cfg *config.Config) (*server, error) {
	size := *cfg.Transport.BufferSize
	reqMem, err := mapShmFile(cfg.Transport.RequestPath, size)
	if err != nil {
		return nil, err
	}
	respMem, err := mapShmFile(cfg.Transport.ResponsePath, size)
	if err != nil {
		return nil, err
	}

	reqBuf, err := shmbuf.NewBuffer(reqMem)
	if err != nil {
		return nil, err
	}
	respBuf, err := shmbuf.NewBuffer(respMem)
	if err != nil {
		return nil, err
	}

	return &server{
		reqMem:  reqMem,
		respMem: respMem,
		shm:     shmbuf.NewServer(reqBuf, respBuf),
	}, nil
}

func (s *server) close() {
	_ = syscall.Munmap(s.reqMem)
	_ = syscall.Munmap(s.respMem)
}

// runServeLoop polls the transport for requests and dispatches each
// one against engine until the process is killed. The poll interval
// trades latency for CPU: a production build would instead block on
// an eventfd or futex signalled by the transport's notify field.
func runServeLoop(s *server, engine *she.Engine) {
	defer s.close()
	for {
		frame, err := s.shm.RecvRequest()
		if errors.Is(err, shmbuf.ErrNotReady) {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			slog.Error("recv request failed", "error", err)
			time.Sleep(time.Millisecond)
			continue
		}

		action, payload, err := she.DecodeRequestFrame(frame)
		if err != nil {
			slog.Warn("malformed request frame", "error", err)
			continue
		}

		code, resp, err := engine.HandleSheRequest(action, payload)
		if err != nil {
			slog.Warn("she request rejected out-of-band", "action", action, "error", err)
			code = she.GeneralError
			resp = nil
		}
		slog.Debug("handled she request", "action", action, "code", code)

		if err := s.shm.SendResponse(she.EncodeResponseFrame(code, resp)); err != nil {
			slog.Error("send response failed", "error", err)
		}
	}
}
