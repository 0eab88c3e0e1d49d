package ports

// Transport abstracts file movement between the extraction area and the
// live installation (rsync/cp in production).
// Production code uses RsyncTransport adapter; tests use MockTransport.
type Transport interface {
	// CopyFile copies a single file, creating parent directories as needed.
	CopyFile(src, dest string) error

	// SyncDir recursively mirrors srcDir into destDir. When deleteExtra is
	// true, files present in destDir but not srcDir are removed, making
	// destDir an exact mirror.
	SyncDir(srcDir, destDir string, deleteExtra bool) error
}
