// Package logging wraps log/slog with the attribute helpers, context
// carriers, and output handling shared by every parallax component.
//
// Components never construct slog handlers directly; they receive a
// *slog.Logger (or derive one via NewComponentLogger) and attach
// standardized fields from this package.
package logging
