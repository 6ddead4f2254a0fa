package adapter

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
	"hash/crc32"
	"slices"
	"strings"

	"github.com/zeebo/xxh3"
)

// Checksum algorithms accepted by Adapter.Checksum.
const (
	ChecksumETag   = "etag"
	ChecksumMD5    = "md5"
	ChecksumSHA1   = "sha1"
	ChecksumSHA256 = "sha256"
	ChecksumCRC32  = "crc32"
	ChecksumXXH3   = "xxh3"
)

// ChecksumAlgorithms lists the supported algorithms, default first.
var ChecksumAlgorithms = []string{
	ChecksumETag, ChecksumMD5, ChecksumSHA1, ChecksumSHA256, ChecksumCRC32, ChecksumXXH3,
}

// normalizeChecksum lower-cases algo and defaults it to etag. ok is false for
// unsupported algorithms.
func normalizeChecksum(algo string) (string, bool) {
	algo = strings.ToLower(strings.TrimSpace(algo))
	if algo == "" {
		algo = ChecksumETag
	}
	return algo, slices.Contains(ChecksumAlgorithms, algo)
}

// newHasher returns a streaming hash for every algorithm except etag.
func newHasher(algo string) hash.Hash {
	switch algo {
	case ChecksumMD5:
		return md5.New()
	case ChecksumSHA1:
		return sha1.New()
	case ChecksumSHA256:
		return sha256.New()
	case ChecksumCRC32:
		return crc32.NewIEEE()
	case ChecksumXXH3:
		return xxh3.New()
	}
	return nil
}
