// Package drive provides the concrete remote.Transport backed by the Google
// Drive v3 API: ListChanges and GetObject go through the generated
// google.golang.org/api/drive/v3 client, while RangedGet issues a plain
// authorized HTTP range request against the file's download link.
package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/plexdrive/plexdrive/internal/remote"
)

// fileFields lists the subset of a drive.File the core cares about; keeping
// this narrow avoids paying for fields plexdrive never reads.
const fileFields = "id,name,mimeType,size,modifiedTime,parents,trashed,capabilities/canTrash,webContentLink"

const folderMimeType = "application/vnd.google-apps.folder"

// Client implements remote.Transport against a live Drive account.
type Client struct {
	svc  *drive.Service
	http *http.Client
}

// New builds a Client authenticated via creds, which is consulted for a
// fresh bearer token on every underlying HTTP request.
func New(ctx context.Context, creds remote.CredentialProvider) (*Client, error) {
	httpClient := &http.Client{
		Transport: &tokenInjectingTransport{
			base:  http.DefaultTransport,
			creds: creds,
		},
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("%w: constructing drive client: %v", remote.ErrAuth, err)
	}

	return &Client{svc: svc, http: httpClient}, nil
}

func (c *Client) ListChanges(ctx context.Context, cursor string, pageSize int64) ([]remote.Change, string, string, error) {
	call := c.svc.Changes.List(cursor).
		Context(ctx).
		PageSize(pageSize).
		IncludeRemoved(true).
		RestrictToMyDrive(true).
		Fields("nextPageToken", "newStartPageToken", googleapi.Field("changes(fileId,removed,file("+fileFields+"))"))

	resp, err := call.Do()
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: listing changes: %v", remote.ErrRequest, err)
	}

	changes := make([]remote.Change, 0, len(resp.Changes))
	for _, ch := range resp.Changes {
		// A file the API still returns but marks trashed is, for plexdrive's
		// purposes, as gone as one the change feed reports removed outright.
		explicitlyTrashed := ch.File != nil && ch.File.Trashed
		if ch.Removed || ch.File == nil || explicitlyTrashed {
			changes = append(changes, remote.Change{Removed: true, RemoteID: ch.FileId})
			continue
		}

		obj, parents, err := fileToObject(ch.File)
		if err != nil {
			return nil, "", "", err
		}
		changes = append(changes, remote.Change{
			RemoteID: ch.FileId,
			Object:   &obj,
			Parents:  parents,
		})
	}

	return changes, resp.NextPageToken, resp.NewStartPageToken, nil
}

func (c *Client) GetObject(ctx context.Context, remoteID string) (remote.Object, []string, error) {
	f, err := c.svc.Files.Get(remoteID).Context(ctx).Fields(googleapi.Field(fileFields)).Do()
	if err != nil {
		return remote.Object{}, nil, fmt.Errorf("%w: fetching object %q: %v", remote.ErrRequest, remoteID, err)
	}

	obj, parents, err := fileToObject(f)
	if err != nil {
		return remote.Object{}, nil, err
	}
	return obj, parents, nil
}

func (c *Client) RangedGet(ctx context.Context, url string, first, last int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building ranged request: %v", remote.ErrRequest, err)
	}
	req.Header.Set("Range", "bytes="+strconv.FormatInt(first, 10)+"-"+strconv.FormatInt(last, 10))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: performing ranged request: %v", remote.ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &remote.BadStatusError{Code: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading ranged response: %v", remote.ErrRead, err)
	}
	return data, nil
}

func fileToObject(f *drive.File) (remote.Object, []string, error) {
	if f.Id == "" || f.Name == "" {
		return remote.Object{}, nil, remote.ErrMissingField
	}

	modified := time.Time{}
	if f.ModifiedTime != "" {
		t, err := time.Parse(time.RFC3339, f.ModifiedTime)
		if err != nil {
			return remote.Object{}, nil, fmt.Errorf("%w: parsing modifiedTime of %q: %v", remote.ErrMissingField, f.Id, err)
		}
		modified = t
	}

	isDir := f.MimeType == folderMimeType
	canTrash := f.Capabilities != nil && f.Capabilities.CanTrash

	return remote.Object{
		RemoteID:     f.Id,
		Name:         f.Name,
		IsDir:        isDir,
		Size:         uint64(f.Size),
		LastModified: modified,
		DownloadURL:  f.WebContentLink,
		CanTrash:     canTrash,
	}, f.Parents, nil
}

// tokenInjectingTransport attaches a fresh bearer token to every outgoing
// request, refreshing through creds rather than relying on a static client.
type tokenInjectingTransport struct {
	base  http.RoundTripper
	creds remote.CredentialProvider
}

func (t *tokenInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.creds.Token(req.Context(), []string{drive.DriveReadonlyScope})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrAuth, err)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+tok)
	return t.base.RoundTrip(clone)
}
