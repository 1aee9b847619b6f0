package genfile

import (
	"context"
	"crypto/md5"  //nolint:gosec // MD5 used for checksum verification, not security
	"crypto/sha1" //nolint:gosec // SHA1 used for checksum verification, not security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ChecksumAlgorithm represents a supported checksum algorithm
type ChecksumAlgorithm string

const (
	// ChecksumMD5 is the MD5 hash algorithm (128-bit, fast but not cryptographically secure)
	ChecksumMD5 ChecksumAlgorithm = "md5"
	// ChecksumSHA1 is the SHA-1 hash algorithm (160-bit, legacy)
	ChecksumSHA1 ChecksumAlgorithm = "sha1"
	// ChecksumSHA256 is the SHA-256 hash algorithm (256-bit, recommended)
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumSHA512 is the SHA-512 hash algorithm (512-bit)
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	// ChecksumCRC32 is the CRC32 checksum (32-bit, for integrity only)
	ChecksumCRC32 ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is the xxHash algorithm (64-bit, extremely fast)
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// NewHasher creates a new hash.Hash for the given algorithm.
// Returns an error if the algorithm is not supported.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumMD5:
		return md5.New(), nil //nolint:gosec // MD5 used for checksum verification, not security
	case ChecksumSHA1:
		return sha1.New(), nil //nolint:gosec // SHA1 used for checksum verification, not security
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrUnsupportedOperation, algorithm)
	}
}

// CalculateChecksum reads from the reader and calculates the checksum using
// the specified algorithm. Returns the hex-encoded checksum string.
func CalculateChecksum(r io.Reader, algorithm ChecksumAlgorithm) (string, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ============================================================================
// ChecksumDecorator
// ============================================================================

// ContentSource opens file content for decorators that need it.
// *Router satisfies it through ContentSourceFunc.
type ContentSource interface {
	OpenContent(ctx context.Context, p Path) (io.ReadCloser, error)
}

// ContentSourceFunc adapts a function to ContentSource.
type ContentSourceFunc func(ctx context.Context, p Path) (io.ReadCloser, error)

// OpenContent implements ContentSource.
func (f ContentSourceFunc) OpenContent(ctx context.Context, p Path) (io.ReadCloser, error) {
	return f(ctx, p)
}

// ChecksumDecorator sets the "checksum.<algorithm>" attribute of files by
// hashing their content. Folders and files above the size limit are skipped.
//
// Every decorated file is read in full, so enable it only where listings are
// small or the algorithm is cheap (xxhash, crc32).
type ChecksumDecorator struct {
	NopDecorator
	content   ContentSource
	algorithm ChecksumAlgorithm
	maxSize   int64
}

// ChecksumOption is a functional option for configuring ChecksumDecorator.
type ChecksumOption func(*ChecksumDecorator)

// WithChecksumMaxSize skips files larger than size bytes. 0 disables the limit.
func WithChecksumMaxSize(size int64) ChecksumOption {
	return func(d *ChecksumDecorator) {
		d.maxSize = size
	}
}

// NewChecksumDecorator creates a ChecksumDecorator reading through content.
func NewChecksumDecorator(content ContentSource, algorithm ChecksumAlgorithm, opts ...ChecksumOption) (*ChecksumDecorator, error) {
	if _, err := NewHasher(algorithm); err != nil {
		return nil, err
	}
	d := &ChecksumDecorator{content: content, algorithm: algorithm}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// AttributeKey returns the attribute the decorator writes.
func (d *ChecksumDecorator) AttributeKey() string {
	return "checksum." + string(d.algorithm)
}

// DecorateFile implements Decorator.
func (d *ChecksumDecorator) DecorateFile(ctx context.Context, file *GenericFile, _ GetFileOptions) error {
	if file.IsFolder() || file.Path.IsZero() {
		return nil
	}
	if d.maxSize > 0 && file.Size > d.maxSize {
		return nil
	}

	rc, err := d.content.OpenContent(ctx, file.Path)
	if err != nil {
		return &OperationError{Op: "checksum", Path: file.Path, Provider: file.Provider, Err: err}
	}
	defer rc.Close()

	sum, err := CalculateChecksum(rc, d.algorithm)
	if err != nil {
		return &OperationError{Op: "checksum", Path: file.Path, Provider: file.Provider, Err: err}
	}
	file.SetAttribute(d.AttributeKey(), sum)
	return nil
}

var _ Decorator = (*ChecksumDecorator)(nil)
