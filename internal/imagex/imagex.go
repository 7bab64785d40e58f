// Package imagex loads RITE images from disk: memory-mapped when possible,
// optionally unsealed from an XXTEA envelope and unwrapped from gzip.
package imagex

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/xxtea/xxtea-go/xxtea"
)

// ErrDecrypt is returned when an XXTEA envelope does not decrypt with the given key.
var ErrDecrypt = errors.New("xxtea decryption failed")

type Image struct {
	Path string
	// All is the file as stored on disk.
	All []byte
	// Data is what the decoder should read: All, or its unsealed form.
	Data []byte

	Sealed     bool
	Compressed bool

	f      *os.File
	mapped bool
}

// Open maps path read-only. Files that cannot be mapped (empty files,
// pipes) are read into memory instead.
func Open(path string) (*Image, error) {
	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	im := &Image{Path: path, f: of}
	if fi.Mode().IsRegular() && fi.Size() > 0 {
		all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
		if err == nil {
			im.All, im.mapped = all, true
		} else {
			slog.Debug("mmap failed, reading file", "file", path, "error", err)
		}
	}
	if !im.mapped {
		all, err := io.ReadAll(of)
		if err != nil {
			of.Close()
			return nil, fmt.Errorf("read file: %w", err)
		}
		im.All = all
	}
	im.Data = im.All
	return im, nil
}

// Close unmaps the memory and closes the underlying file.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil && im.mapped {
		err1 = syscall.Munmap(im.All)
	}
	im.All, im.Data = nil, nil
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// Digest returns the hex SHA-256 of the file as stored.
func (im *Image) Digest() string {
	sum := sha256.Sum256(im.All)
	return hex.EncodeToString(sum[:])
}

// Unseal decrypts the image in place of Data when key is set, then unwraps
// gzip if the result (or the plain file) is compressed.
func (im *Image) Unseal(key, signature string) error {
	data, sealed, err := Unseal(im.All, key, signature)
	if err != nil {
		return err
	}
	im.Sealed = sealed
	out, compressed, err := Gunzip(data)
	if err != nil {
		return err
	}
	im.Compressed = compressed
	im.Data = out
	return nil
}

// Unseal strips signature when data starts with it and XXTEA-decrypts the
// rest with key. An empty key returns data unchanged.
func Unseal(data []byte, key, signature string) ([]byte, bool, error) {
	if key == "" {
		return data, false, nil
	}
	if signature != "" && bytes.HasPrefix(data, []byte(signature)) {
		data = data[len(signature):]
	}
	out := xxtea.Decrypt(data, []byte(key))
	if out == nil {
		return nil, false, ErrDecrypt
	}
	slog.Debug("XXTEA decryption successful", "encrypted_size", len(data), "decrypted_size", len(out))
	return out, true, nil
}

// Gunzip inflates data if it starts with the gzip magic.
func Gunzip(data []byte) ([]byte, bool, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, false, nil
	}
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("gzip decompression failed: %w", err)
	}
	slog.Debug("Gzip decompression successful", "original_size", len(data), "decompressed_size", len(out))
	return out, true, nil
}
