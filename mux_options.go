package tlogmux

import "github.com/brindlerobotics/tlogmux/internal/wire"

// MuxOptions configures a Server.
type MuxOptions struct {
	// BufferSize bounds the receive and transmit buffers, and therefore
	// the largest payload a frame may carry. Must be >= 256.
	BufferSize int

	// MaxTunnelStreams bounds how many tunnels MakeTunnel may create.
	MaxTunnelStreams int

	// DefaultID is the node ID used the first time a Server runs, before
	// any ID has been persisted via the injected configuration store.
	DefaultID byte

	// TunnelBufferSize bounds each tunnel's ingress and egress ring
	// buffers.
	TunnelBufferSize int

	// BufferPool is the byte-buffer arena backing the server's receive,
	// transmit and tunnel buffers. A private pool is created if nil.
	BufferPool *wire.Pool

	// Logger receives server lifecycle and frame-error messages.
	Logger Logger
}

// DefaultMuxOptions returns Server defaults.
func DefaultMuxOptions() *MuxOptions {
	return &MuxOptions{
		BufferSize:       1024,
		MaxTunnelStreams: 8,
		DefaultID:        1,
		TunnelBufferSize: 4096,
	}
}

func (o *MuxOptions) validated() *MuxOptions {
	c := *o
	if c.BufferSize < 256 {
		c.BufferSize = 256
	}
	if c.MaxTunnelStreams <= 0 {
		c.MaxTunnelStreams = 1
	}
	if c.TunnelBufferSize <= 0 {
		c.TunnelBufferSize = 4096
	}
	return &c
}
