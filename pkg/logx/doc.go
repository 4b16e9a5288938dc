// Package logx configures tcasvoice's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Hot paths (the 20 Hz scheduler tick) protected from log floods via Limited
package logx
