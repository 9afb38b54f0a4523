package singleinstance

// This file defines the API for single-instance ownership and remote control
// of the resident process.

import (
	"context"
	"errors"
)

// ErrAlreadyRunning is returned by Server.Start when another resident owns the port.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Commands understood by the resident.
const (
	CommandExit   = "EXIT"
	CommandStatus = "STATUS"
)

// Server owns the TCP endpoint and answers control requests.
type Server interface {
	// Start binds the first port of the configured range and begins accepting clients.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted request as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends OK followed by optional text.
	RespondSuccess(text string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request represents a single control request.
type Request struct {
	Command string
}

// Client talks to a resident server.
type Client interface {
	// Send scans the port range for a resident and delivers command.
	// If no resident is found, returns found=false, err=nil.
	Send(ctx context.Context, command string) (found bool, text string, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
