// Command shectl is an interactive diagnostic client for a running
// shehsmd: it maps the same shared-memory transport files and lets an
// operator drive individual SHE commands by hand.
package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/shecore/hsm/internal/config"
	"github.com/shecore/hsm/internal/she"
	"github.com/shecore/hsm/internal/shmbuf"
)

type command struct {
	label  string
	action she.Action
	build  func(in *bufio.Reader) ([]byte, error)
}

var commands = []command{
	{"GET_STATUS", she.ActionGetStatus, noArgs},
	{"SET_UID (15 hex bytes)", she.ActionSetUID, hexArgs(15)},
	{"INIT_RND", she.ActionInitRnd, noArgs},
	{"RND", she.ActionRnd, noArgs},
	{"LOAD_PLAIN_KEY (16 hex bytes)", she.ActionLoadPlainKey, hexArgs(16)},
	{"EXPORT_RAM_KEY", she.ActionExportRamKey, noArgs},
}

func noArgs(*bufio.Reader) ([]byte, error) { return nil, nil }

func hexArgs(n int) func(*bufio.Reader) ([]byte, error) {
	return func(in *bufio.Reader) ([]byte, error) {
		fmt.Printf("enter %d bytes as hex: ", n)
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, err
		}
		b, err := hex.DecodeString(strings.TrimSpace(line))
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		if len(b) != n {
			return nil, fmt.Errorf("expected %d bytes, got %d", n, len(b))
		}
		return b, nil
	}
}

func mapShmFile(path string) ([]byte, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return syscall.Mmap(int(f.Fd()), 0, int(fi.Size()), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the daemon configuration file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.LoadWithMode(*configPath, config.ValidationDiag)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	reqMem, err := mapShmFile(cfg.Transport.RequestPath)
	if err != nil {
		log.Fatalf("map request transport failed: %v", err)
	}
	respMem, err := mapShmFile(cfg.Transport.ResponsePath)
	if err != nil {
		log.Fatalf("map response transport failed: %v", err)
	}

	reqBuf, err := shmbuf.NewBuffer(reqMem)
	if err != nil {
		log.Fatalf("wrap request buffer failed: %v", err)
	}
	respBuf, err := shmbuf.NewBuffer(respMem)
	if err != nil {
		log.Fatalf("wrap response buffer failed: %v", err)
	}
	client := shmbuf.NewClient(reqBuf, respBuf)

	fmt.Println("=== SHE diagnostic console ===")
	fmt.Println()

	in := bufio.NewReader(os.Stdin)
	for {
		labels := make([]string, len(commands))
		for i, c := range commands {
			labels[i] = c.label
		}
		idx := selectMenu("Select a command:", labels)
		if idx < 0 {
			return
		}
		cmd := commands[idx]

		payload, err := cmd.build(in)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		if err := sendAndPrint(client, cmd.action, payload); err != nil {
			fmt.Printf("error: %v\n", err)
		}
		fmt.Println()
	}
}

func sendAndPrint(client *shmbuf.Client, action she.Action, payload []byte) error {
	frame := she.EncodeRequestFrame(action, payload)
	if err := client.SendRequest(frame); err != nil {
		return err
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.RecvResponse()
		if errors.Is(err, shmbuf.ErrNotReady) {
			time.Sleep(time.Millisecond)
			continue
		}
		if err != nil {
			return err
		}
		code, body, err := she.DecodeResponseFrame(resp)
		if err != nil {
			return err
		}
		fmt.Printf("status: %s\n", code)
		if len(body) > 0 {
			fmt.Printf("response: %s\n", hex.EncodeToString(body))
		}
		return nil
	}
	return fmt.Errorf("timed out waiting for response")
}
