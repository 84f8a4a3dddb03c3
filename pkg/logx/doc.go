// Package logx is a thin structured-logging facade over zerolog.
//
// It exposes a Service whose sinks (console, file, Telegram mirror) can be
// swapped at runtime via Apply(), and a Logger value type that stays live
// across those swaps. The zero Logger is a safe no-op.
package logx
