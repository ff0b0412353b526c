package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
)

// Transport is the wire abstraction both stdio and HTTP transports
// implement: a blocking request/response call plus a fire-and-forget
// notification, and a way to tear the connection down.
type Transport interface {
	Request(ctx context.Context, method string, params any) (json.RawMessage, error)
	Notify(ctx context.Context, method string, params any) error
	Close() error
}

// StdioTransport speaks line-delimited JSON-RPC 2.0 over a child process's
// stdin/stdout. Requests are assigned a monotonically increasing id; a
// background read-loop demultiplexes responses to whichever call is waiting
// on that id via a registry, so a response that arrives after its caller has
// already timed out is simply dropped rather than misdelivered to the next
// unrelated call on the connection (see package doc notes on the
// abandoned-RPC hazard).
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	nextID atomic.Uint64

	writeMu sync.Mutex
	pending sync.Map // uint64 -> chan response

	closeOnce sync.Once
}

// NewStdioTransport spawns command with args in workDir, with env appended
// to the child's environment, and starts the background read-loop.
func NewStdioTransport(command string, args []string, env []string, workDir string) (*StdioTransport, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = workDir
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &TransportError{Err: err}
	}

	t := &StdioTransport{cmd: cmd, stdin: stdin}
	go t.readLoop(stdout)
	go t.drainStderr(stderr)
	return t, nil
}

func (t *StdioTransport) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			slog.Warn("mcp: malformed response line", "error", err)
			continue
		}
		ch, ok := t.pending.Load(resp.ID)
		if !ok {
			slog.Debug("mcp: dropping response for abandoned request", "id", resp.ID)
			continue
		}
		t.pending.Delete(resp.ID)
		ch.(chan response) <- resp
	}
}

func (t *StdioTransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.Debug("mcp server stderr", "line", scanner.Text())
	}
}

// Request sends method/params as a JSON-RPC request and waits for the
// matching response or ctx's deadline, whichever comes first. On timeout
// the request is abandoned: its registry entry is left so readLoop can
// still deliver (and discard) a late response without misrouting it.
func (t *StdioTransport) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := t.nextID.Add(1)

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal params: %w", err)
	}

	ch := make(chan response, 1)
	t.pending.Store(id, ch)

	req := request{JSONRPC: "2.0", ID: id, Method: method, Params: paramsJSON}
	line, err := json.Marshal(req)
	if err != nil {
		t.pending.Delete(id)
		return nil, fmt.Errorf("mcp: marshal request: %w", err)
	}

	t.writeMu.Lock()
	_, writeErr := t.stdin.Write(append(line, '\n'))
	t.writeMu.Unlock()
	if writeErr != nil {
		t.pending.Delete(id)
		return nil, &TransportError{Err: writeErr}
	}

	select {
	case resp := <-ch:
		if resp.ID != id {
			return nil, &ProtocolError{WantID: id, GotID: resp.ID}
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, &TimeoutError{Method: method}
	}
}

// Notify sends a JSON-RPC notification (no id, no response expected).
// Any write error is reported; the server's handling of the notification
// itself is fire-and-forget by protocol design.
func (t *StdioTransport) Notify(_ context.Context, method string, params any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("mcp: marshal params: %w", err)
	}
	note := notification{JSONRPC: "2.0", Method: method, Params: paramsJSON}
	line, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("mcp: marshal notification: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.stdin.Write(append(line, '\n')); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// Close terminates the child process. Idempotent.
func (t *StdioTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		_ = t.stdin.Close()
		if t.cmd.Process != nil {
			err = t.cmd.Process.Kill()
		}
		_ = t.cmd.Wait()
	})
	return err
}
