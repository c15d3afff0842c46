// Package logx wraps zerolog behind a small structured-logging API.
//
// The engine logs every decision it takes (classification drops, debounce
// suppressions, dispatch attempts and results, persistence failures), so the
// file sink doubles as the operational audit trail for the process.
//
// Logger is a value type and its zero value is a safe no-op, which keeps
// constructors free of nil checks. A Service owns the sinks and can re-apply
// configuration at runtime without invalidating loggers already handed out.
package logx
