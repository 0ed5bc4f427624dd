package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type (
	// File is a single file belonging to an archive item, as reported
	// by the item metadata endpoint. The archive reports most numeric
	// values as strings, hence these are decoded with weak typing.
	File struct {
		Name   string `mapstructure:"name"`
		Source string `mapstructure:"source"`
		Format string `mapstructure:"format"`
		Size   int64  `mapstructure:"size"`
		MD5    string `mapstructure:"md5"`
		SHA1   string `mapstructure:"sha1"`
		Mtime  int64  `mapstructure:"mtime"`
	}

	itemMetadata struct {
		Files  []File `mapstructure:"files"`
		IsDark bool   `mapstructure:"is_dark"`
	}
)

// Verify compares the md5 provided with the md5 advertised for
// this file. Files without an advertised md5 always verify.
func (file File) Verify(actualMD5 string) error {
	if file.MD5 == "" || strings.EqualFold(file.MD5, actualMD5) {
		return nil
	}

	return &ChecksumError{Name: file.Name, Expected: file.MD5, Actual: actualMD5}
}

// ListFiles returns every file the archive holds for the item provided.
// If the item does not exist (or is dark), ErrItemNotFound is returned.
func (client *Client) ListFiles(ctx context.Context, identifier string) ([]File, error) {
	target := client.url("metadata", identifier)
	resp, err := client.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, identifier)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", identifier, err)
	}

	// Unknown items are reported as an empty JSON object rather than a 404
	if _, ok := raw["files"]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, identifier)
	}

	var meta itemMetadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &meta,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode file listing for %s: %w", identifier, err)
	}

	if meta.IsDark {
		return nil, fmt.Errorf("%w: %s is dark", ErrItemNotFound, identifier)
	}

	return meta.Files, nil
}

// FindFile returns the file with the matching name from the listing.
func FindFile(files []File, name string) (File, bool) {
	for _, f := range files {
		if f.Name == name {
			return f, true
		}
	}

	return File{}, false
}
