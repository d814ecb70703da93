package ui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/govfs/internal/queue"
	"github.com/desertwitch/govfs/transfer"
)

// testContext returns a context that is canceled when the test ends,
// standing in for testing.T.Context on toolchains that predate it.
func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}

// newTestTransfers returns a transfer handler with live queue and byte
// counters, detached from any adapter.
func newTestTransfers() *transfer.Handler {
	return &transfer.Handler{
		Queue: queue.NewProgressQueue[*transfer.Request](),
		Stats: &transfer.Stats{},
	}
}

// TestTeaUI is an integration test for the command-line user interface.
func TestTeaUI(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var in bytes.Buffer

	ctx, cancel := context.WithTimeout(testContext(t), 10*time.Second)
	defer cancel()

	transfers := newTestTransfers()

	handler := &Handler{transfers: transfers}
	model := NewTeaModel(handler, transfers, cancel)
	program := tea.NewProgram(model, tea.WithInput(&in), tea.WithOutput(&buf), tea.WithAltScreen(), tea.WithContext(ctx))

	handler.program = program
	handler.LogWriter = NewTeaLogWriter(handler.program)

	go func() {
		// Simulate some transfer work for the UI to render.
		program.Send(tea.WindowSizeMsg{Width: 200, Height: 200})

		for {
			time.Sleep(time.Millisecond)
			if handler.Ready.Load() {
				transfers.Stats.Start(3000)
				transfers.Queue.Enqueue(
					&transfer.Request{},
					&transfer.Request{},
					&transfer.Request{},
				)
				_ = transfers.Queue.DequeueAndProcess(ctx, func(req *transfer.Request) int {
					time.Sleep(100 * time.Millisecond)
					transfers.Stats.Add(1000)

					return queue.DecisionSuccess
				})
				transfers.Stats.End()

				return
			}
			if handler.Failed.Load() {
				return
			}
		}
	}()

	go func() {
		// Simulate some fast-paced logs and key presses for the UI.
		for {
			time.Sleep(time.Millisecond)
			if handler.Ready.Load() {
				program.Send(LogMsg("log1"))
				time.Sleep(time.Millisecond)

				_, _ = handler.LogWriter.Write([]byte("log2"))
				time.Sleep(time.Millisecond)

				for i := 0; i < 150; i++ {
					_, _ = handler.LogWriter.Write([]byte("fast logs"))
				}
				time.Sleep(time.Millisecond)

				program.Send(tea.WindowSizeMsg{Width: 200, Height: 250})

				time.Sleep(3 * time.Second)
				program.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

				return
			}
			if handler.Failed.Load() {
				return
			}
		}
	}()

	if err := handler.Launch(); err != nil {
		t.Fatalf("Expected nil, got %v", err)
	}

	if buf.Len() == 0 {
		t.Fatal("UI generated no output at all")
	}

	by := buf.Bytes()

	if !bytes.Contains(by, []byte("log1")) {
		t.Fatal("UI did not show the first log message sent (via program.Send)")
	}

	if !bytes.Contains(by, []byte("log2")) {
		t.Fatal("UI did not show the second log message sent (via LogWriter)")
	}

	if !bytes.Contains(by, []byte("Finished")) {
		t.Fatal("UI did not update the progress panels.")
	}
}

// TestTeaUI_Ctrl_C is an integration test for the command-line user interface.
// A Ctrl+C keypress is simulated, which should trigger upstream Context
// cancellation for signalling application teardown.
func TestTeaUI_Ctrl_C(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var in bytes.Buffer

	ctx, cancel := context.WithTimeout(testContext(t), 10*time.Second)
	defer cancel()

	transfers := newTestTransfers()

	handler := &Handler{transfers: transfers}
	model := NewTeaModel(handler, transfers, cancel)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithInput(&in), tea.WithOutput(&buf), tea.WithContext(ctx))

	handler.program = program
	handler.LogWriter = NewTeaLogWriter(handler.program)

	go func() {
		program.Send(tea.WindowSizeMsg{Width: 200, Height: 200})

		for {
			time.Sleep(time.Millisecond)
			if handler.Ready.Load() {
				program.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

				return
			}
			if handler.Failed.Load() {
				return
			}
		}
	}()

	err := handler.Launch()

	if err == nil {
		t.Fatalf("Expected %v, got nil", context.Canceled)
	}

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected %v, got %v", context.Canceled, err)
	}

	if buf.Len() == 0 {
		t.Fatal("UI generated no output at all")
	}
}
