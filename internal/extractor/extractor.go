// Package extractor implements the Archive Extractor: it parses an
// uploaded ZIP bundle, derives the content-addressed update identifier,
// and fans every entry out to Blob storage, per spec.md §4.3.
//
// Grounded on the ZIP-reading idiom in Origin-Protocol's bundle
// verifier (readZipFile/verifySealedBundle): a single zip.NewReader
// pass over the whole archive, with required top-level entries located
// by name before anything is written out.
package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/blob"
)

const (
	entryAppJSON      = "app.json"
	entryPackageJSON  = "package.json"
	entryMetadataJSON = "metadata.json"
)

// Result holds everything recovered from an archive, ready to be
// persisted onto a meta.Upload row by the caller.
type Result struct {
	UpdateID                 string
	AppDescriptorJSON        string
	DependencyDescriptorJSON string
	AssetMetadataJSON        string
}

// Extract parses archive (the full ZIP byte stream) and writes every
// non-directory entry to store at updates/{updateId}/{relativePath}.
//
// The update identifier is derived from metadata.json before any entry
// is written, so every key in this call shares one updateId. Per the
// "extract first, insert-on-success" policy, a failure partway through
// the fan-out leaves already-written objects in place; the caller must
// not insert an Upload row when Extract returns an error.
func Extract(ctx context.Context, store blob.Store, archive []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, apperr.New(apperr.Validation, "archive is not a valid zip file")
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, err := sanitizeEntryName(f.Name)
		if err != nil {
			return nil, err
		}
		files[name] = f
	}

	metadataBytes, err := requireEntry(files, entryMetadataJSON)
	if err != nil {
		return nil, err
	}
	if !json.Valid(metadataBytes) {
		return nil, apperr.New(apperr.Validation, "metadata.json is malformed")
	}

	appBytes, err := requireEntry(files, entryAppJSON)
	if err != nil {
		return nil, err
	}
	appDescriptor, err := extractSubObject(appBytes, "expo")
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "app.json is malformed", err)
	}

	pkgBytes, err := requireEntry(files, entryPackageJSON)
	if err != nil {
		return nil, err
	}
	depDescriptor, err := extractSubObject(pkgBytes, "dependencies")
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "package.json is malformed", err)
	}

	updateID := uuidFromSha256(sha256.Sum256(metadataBytes))

	for name, f := range files {
		data, err := readZipFile(f)
		if err != nil {
			return nil, apperr.Wrap(apperr.Validation, fmt.Sprintf("failed to read %s from archive", name), err)
		}
		key := fmt.Sprintf("updates/%s/%s", updateID, name)
		if err := store.Put(ctx, key, bytes.NewReader(data)); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "failed to store extracted asset", err)
		}
	}

	return &Result{
		UpdateID:                 updateID,
		AppDescriptorJSON:        appDescriptor,
		DependencyDescriptorJSON: depDescriptor,
		AssetMetadataJSON:        string(metadataBytes),
	}, nil
}

// StoreArchive persists the original archive bytes at
// uploads/{uploadId}/{filename}, per spec.md §4.3.
func StoreArchive(ctx context.Context, store blob.Store, uploadID, filename string, archive []byte) error {
	key := fmt.Sprintf("uploads/%s/%s", uploadID, filename)
	if err := store.Put(ctx, key, bytes.NewReader(archive)); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to store archive", err)
	}
	return nil
}

func requireEntry(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, apperr.New(apperr.Validation, fmt.Sprintf("archive is missing %s at its root", name))
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, fmt.Sprintf("failed to read %s", name), err)
	}
	return data, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// sanitizeEntryName rejects zip-slip entries (absolute paths or any
// ".." path segment) before anything is read from them, and returns
// the path as cleaned by path.Clean (a leading "./" is dropped).
func sanitizeEntryName(name string) (string, error) {
	if strings.HasPrefix(name, "/") {
		return "", apperr.New(apperr.Validation, "archive contains an absolute entry path")
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(clean, "/../") {
		return "", apperr.New(apperr.Validation, "archive contains a path-traversal entry")
	}
	return clean, nil
}

// extractSubObject parses raw as a JSON object and returns the
// re-marshaled sub-object at key, or "{}" if the key is absent.
func extractSubObject(raw []byte, key string) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	sub, ok := obj[key]
	if !ok {
		return "{}", nil
	}
	if !json.Valid(sub) {
		return "", fmt.Errorf("field %q is not valid JSON", key)
	}
	return string(sub), nil
}

// uuidFromSha256 reformats the first 32 hex characters of a SHA-256
// digest into the canonical 8-4-4-4-12 UUID layout, per spec.md §4.3.
func uuidFromSha256(digest [sha256.Size]byte) string {
	h := hex.EncodeToString(digest[:])[:32]
	return fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}
