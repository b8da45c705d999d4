// Package ui renders git command lifecycle events as human-readable console lines.
//
// The console format routes every executed git command through these helpers so
// operators see what each repository is doing while structured output keeps the
// raw zap fields.
package ui
