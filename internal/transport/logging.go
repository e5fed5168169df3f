// SPDX-License-Identifier: MIT
package transport

import (
	applog "tuner/internal/log"
)

// LoggingTransport writes every report to the application log at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs data; it never fails.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("Transport: %v", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
