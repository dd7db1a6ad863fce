// Package bank persists a fixed set of structured memory bank documents
// on disk and keeps a fast in-memory view of them.
//
// Invariants:
// - File access never escapes the configured root directory.
// - A write that returns success is visible to every subsequent read of
//   the same path; writes are atomic (temp file plus rename).
// - Cached content is revalidated against on-disk mtime on every access.
// - Metadata queries never observe a partially rebuilt index.
//
// Usage:
//
//	core, _ := bank.NewCore(bank.CoreConfig{Root: "/data/membank"})
//	_ = core.InitializeFolders(ctx)
//	created, _ := core.LoadFiles(ctx)
//	_ = created
//	file, _ := core.GetFile(bank.FileTypeProjectBrief)
//	_ = file
package bank
