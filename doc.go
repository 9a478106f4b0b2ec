/*
Package tlogmux implements two load-bearing subsystems for robotics
telemetry and on-wire device control:

  - The TLOG v3 writer (tlog_*.go) produces a self-describing, seekable,
    append-only binary log whose records carry schema-tagged, timestamped,
    optionally-compressed data, and whose trailing index permits O(log n)
    lookup without a full scan.

  - The Multiplex protocol server (mux_*.go) implements a framed,
    CRC-protected serial protocol with two services: register-based RPC
    (typed scalar read/write) and byte-stream tunneling multiplexed over
    the same link.

Both subsystems share one byte-encoding toolkit (internal/wire): varuint
coding, fixed-width little-endian integers, and the CRC-16 (CCITT-false)
checksum used on multiplex frames.

A temporary-file helper, a JSON5 configuration codec, an executor/event
loop, a generic struct serializer, CLI harnesses, and a persistent
key/value store for a node's configured ID are treated as external
collaborators and are not implemented by this module.
*/
package tlogmux
