// Package shared holds cross-cutting helpers with no domain logic of their
// own. Its only subpackage today is testutil, which provides an in-memory
// slog handler for asserting on log output in tests.
package shared
