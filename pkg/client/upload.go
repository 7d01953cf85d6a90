package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tidalab/datachat/pkg/chat"
)

// UploadFiles uploads every path concurrently and waits for all of them.
// File ids must be fully resolved before a turn begins, so the first
// failure cancels the remaining uploads and fails the whole batch. The
// returned refs preserve the order of paths.
func (c *Client) UploadFiles(ctx context.Context, paths []string) ([]chat.FileRef, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	refs := make([]chat.FileRef, len(paths))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			ref, err := c.UploadFile(ctx, path)
			if err != nil {
				return fmt.Errorf("upload %s: %w", path, err)
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// UploadFile uploads one file from disk.
func (c *Client) UploadFile(ctx context.Context, path string) (chat.FileRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return chat.FileRef{}, err
	}
	defer f.Close()
	return c.UploadFileData(ctx, filepath.Base(path), f)
}

// UploadFileData uploads file content from a reader under the given name
// and returns the backend's file descriptor.
func (c *Client) UploadFileData(ctx context.Context, name string, r io.Reader) (chat.FileRef, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return chat.FileRef{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return chat.FileRef{}, fmt.Errorf("read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return chat.FileRef{}, fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/files", &body)
	if err != nil {
		return chat.FileRef{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return chat.FileRef{}, &TransportError{Op: "upload file", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return chat.FileRef{}, ClassifyAPIError(resp.StatusCode, string(respBody))
	}

	var ref chat.FileRef
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return chat.FileRef{}, fmt.Errorf("decode upload response: %w", err)
	}

	slog.Debug("[Client] uploaded file", "name", ref.Name, "id", ref.ID, "size", ref.Size)
	return ref, nil
}
