// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"io"
	"sync"
)

// ConsoleTransport prints one report line per estimate.
type ConsoleTransport struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleTransport writes to w, normally os.Stdout.
func NewConsoleTransport(w io.Writer) *ConsoleTransport {
	return &ConsoleTransport{w: w}
}

// Send writes data followed by a newline. Estimates render through their
// String method.
func (ct *ConsoleTransport) Send(data any) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if _, err := fmt.Fprintln(ct.w, data); err != nil {
		return fmt.Errorf("console write failed: %w", err)
	}
	return nil
}

// Close does not close the underlying writer.
func (ct *ConsoleTransport) Close() error {
	return nil
}

var _ Transport = (*ConsoleTransport)(nil)
