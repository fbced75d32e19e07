// Package descriptor builds per-platform manifest records from a
// stored metadata.json and the extracted update's assets, per
// spec.md §4.4.
//
// Grounded on BigKAA-goartstore's internal/service/upload.go pattern
// of streaming hash computation during I/O; generalized here to a
// bounded fan-out over a platform's asset list so hashing happens
// concurrently while the result order still matches the source list.
package descriptor

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/blob"
)

// Asset is one descriptor in a manifest's assets array, or its
// launchAsset.
type Asset struct {
	Hash          string `json:"hash"`
	Key           string `json:"key"`
	FileExtension string `json:"fileExtension"`
	ContentType   string `json:"contentType"`
	URL           string `json:"url"`
}

// Manifest is the final per-platform manifest record, serialized
// verbatim (and, when signing is requested, over its own bytes) by
// the Manifest Server.
type Manifest struct {
	ID             string  `json:"id"`
	CreatedAt      string  `json:"createdAt"`
	RuntimeVersion string  `json:"runtimeVersion"`
	Assets         []Asset `json:"assets"`
	LaunchAsset    Asset   `json:"launchAsset"`
}

type assetRef struct {
	Path string `json:"path"`
	Ext  string `json:"ext"`
}

type platformMetadata struct {
	Assets []assetRef `json:"assets"`
	Bundle string     `json:"bundle"`
}

type fileMetadataDoc struct {
	FileMetadata map[string]platformMetadata `json:"fileMetadata"`
}

// maxConcurrentHashes bounds the per-manifest goroutine fan-out so a
// pathologically large asset list can't exhaust file descriptors
// against the Blob store.
const maxConcurrentHashes = 8

// Build reads doc (the upload's stored metadata.json), selects
// fileMetadata[platform], and hashes every referenced asset to
// produce the manifest record for that platform. Absent platforms are
// a not-found error, per spec.md's resolution of that open question.
func Build(ctx context.Context, store blob.Store, publicURL, updateID string, metadataJSON []byte, platform, runtimeVersion string, createdAt time.Time) (*Manifest, error) {
	var doc fileMetadataDoc
	if err := json.Unmarshal(metadataJSON, &doc); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "stored metadata.json is malformed", err)
	}
	pm, ok := doc.FileMetadata[platform]
	if !ok {
		return nil, apperr.New(apperr.NotFound, fmt.Sprintf("no asset metadata for platform %q", platform))
	}

	assets := make([]Asset, len(pm.Assets))
	errs := make([]error, len(pm.Assets))
	sem := make(chan struct{}, maxConcurrentHashes)
	var wg sync.WaitGroup
	for i, ref := range pm.Assets {
		wg.Add(1)
		go func(i int, ref assetRef) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			a, err := buildAsset(ctx, store, publicURL, updateID, ref.Path, ref.Ext, false)
			assets[i] = a
			errs[i] = err
		}(i, ref)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	launch, err := buildAsset(ctx, store, publicURL, updateID, pm.Bundle, "", true)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		ID:             updateID,
		CreatedAt:      createdAt.UTC().Format(time.RFC3339Nano),
		RuntimeVersion: runtimeVersion,
		Assets:         assets,
		LaunchAsset:    launch,
	}, nil
}

// buildAsset reads one asset's bytes from Blob and computes the
// hash/key/fileExtension/contentType/url fields exactly per spec.md
// §4.4. The launch asset always gets the ".bundle" extension and the
// javascript content type, regardless of what ext carries.
func buildAsset(ctx context.Context, store blob.Store, publicURL, updateID, relPath, ext string, isLaunch bool) (Asset, error) {
	key := fmt.Sprintf("updates/%s/%s", updateID, relPath)
	rc, err := store.Get(ctx, key)
	if err != nil {
		return Asset{}, apperr.Wrap(apperr.Internal, "failed to read asset "+key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Asset{}, apperr.Wrap(apperr.Internal, "failed to read asset "+key, err)
	}

	sum256 := sha256.Sum256(data)
	sumMD5 := md5.Sum(data)

	fileExtension := "." + ext
	contentType := "application/octet-stream"
	if isLaunch {
		fileExtension = ".bundle"
		contentType = "application/javascript"
	}

	q := url.Values{}
	q.Set("asset", key)
	q.Set("contentType", contentType)

	return Asset{
		Hash:          base64.RawURLEncoding.EncodeToString(sum256[:]),
		Key:           hex.EncodeToString(sumMD5[:]),
		FileExtension: fileExtension,
		ContentType:   contentType,
		URL:           fmt.Sprintf("%s/assets?%s", publicURL, q.Encode()),
	}, nil
}
