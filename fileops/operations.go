package fileops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"plcdb/journal"
	"plcdb/models"
	"plcdb/transport"
)

// ListFileInfo returns the deployed files on host in server order.
func (c *Client) ListFileInfo(ctx context.Context, host string) ([]transport.RemoteFile, error) {
	started := nowUnixMilli()
	session, opts, err := c.open(ctx, host)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbList, Status: journal.StatusFailed,
			Detail: err.Error(), StartedAt: started,
		})
		return nil, err
	}
	defer session.Close()

	text, err := session.List()
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbList, Status: journal.StatusFailed,
			Detail: err.Error(), StartedAt: started,
		})
		return nil, err
	}
	directory := opts.Directory
	if directory == "" {
		directory = transport.DefaultDirectory
	}
	files, err := transport.ParseListing(directory, text)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbList, Status: journal.StatusFailed,
			Detail: err.Error(), StartedAt: started,
		})
		return nil, err
	}
	c.record(journal.Operation{
		Host: host, Verb: journal.VerbList, Status: journal.StatusOK, StartedAt: started,
	})
	c.log.Info().Str("host", host).Int("files", len(files)).Msg("listed remote directory")
	return files, nil
}

// Upload deploys localPath to host. An empty remoteName defaults to the base
// name of localPath. A missing local file fails before any connection is
// attempted.
func (c *Client) Upload(ctx context.Context, host, localPath, remoteName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("fileops: upload %q: %w", localPath, ErrLocalNotFound)
		}
		return fmt.Errorf("fileops: upload %q: %w", localPath, err)
	}
	defer f.Close()
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}
	var size int64
	if info, statErr := f.Stat(); statErr == nil {
		size = info.Size()
	}

	started := nowUnixMilli()
	session, _, err := c.open(ctx, host)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbUpload, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return err
	}
	defer session.Close()

	if err := session.Put(f, remoteName); err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbUpload, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return err
	}
	c.record(journal.Operation{
		Host: host, Verb: journal.VerbUpload, Filename: remoteName, SizeBytes: size,
		Status: journal.StatusOK, StartedAt: started,
	})
	c.log.Info().Str("host", host).Str("file", remoteName).Int64("bytes", size).Msg("uploaded file")
	return nil
}

// DownloadText retrieves remoteName from host as text.
func (c *Client) DownloadText(ctx context.Context, host, remoteName string) (string, error) {
	started := nowUnixMilli()
	session, _, err := c.open(ctx, host)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbDownload, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return "", err
	}
	defer session.Close()

	raw, err := session.Get(remoteName)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbDownload, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return "", err
	}
	c.record(journal.Operation{
		Host: host, Verb: journal.VerbDownload, Filename: remoteName, SizeBytes: int64(len(raw)),
		Status: journal.StatusOK, StartedAt: started,
	})
	c.log.Info().Str("host", host).Str("file", remoteName).Int("bytes", len(raw)).Msg("downloaded file")
	return string(raw), nil
}

// DownloadJSON retrieves remoteName from host and decodes it as a
// configuration database. Transport failures pass through unchanged; decode
// failures wrap the models error.
func (c *Client) DownloadJSON(ctx context.Context, host, remoteName string) (*models.FileContents, error) {
	text, err := c.DownloadText(ctx, host, remoteName)
	if err != nil {
		return nil, err
	}
	contents, err := models.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("fileops: decode %q from %s: %w", remoteName, host, err)
	}
	return contents, nil
}

// Compare reports whether localPath is byte-identical to the remote file with
// the same base name on host.
func (c *Client) Compare(ctx context.Context, host, localPath string) (bool, error) {
	local, err := os.ReadFile(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("fileops: compare %q: %w", localPath, ErrLocalNotFound)
		}
		return false, fmt.Errorf("fileops: compare %q: %w", localPath, err)
	}
	remoteName := filepath.Base(localPath)

	started := nowUnixMilli()
	session, _, err := c.open(ctx, host)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbCompare, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return false, err
	}
	defer session.Close()

	remote, err := session.Get(remoteName)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbCompare, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return false, err
	}
	equal := bytes.Equal(local, remote)
	detail := "match"
	if !equal {
		detail = "mismatch"
	}
	c.record(journal.Operation{
		Host: host, Verb: journal.VerbCompare, Filename: remoteName, SizeBytes: int64(len(remote)),
		Status: journal.StatusOK, Detail: detail, StartedAt: started,
	})
	c.log.Info().Str("host", host).Str("file", remoteName).Bool("match", equal).Msg("compared file bytes")
	return equal, nil
}

// CompareContents structurally compares localPath against the database
// deployed on host. The local file is side A; the remote file is named
// HostFilename(host).
func (c *Client) CompareContents(ctx context.Context, host, localPath string) (*models.Diff, error) {
	local, err := os.ReadFile(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("fileops: compare %q: %w", localPath, ErrLocalNotFound)
		}
		return nil, fmt.Errorf("fileops: compare %q: %w", localPath, err)
	}
	localContents, err := models.Parse(local)
	if err != nil {
		return nil, fmt.Errorf("fileops: decode %q: %w", localPath, err)
	}
	remoteName := HostFilename(host)

	started := nowUnixMilli()
	session, _, err := c.open(ctx, host)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbCompare, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return nil, err
	}
	defer session.Close()

	remote, err := session.Get(remoteName)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbCompare, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return nil, err
	}
	remoteContents, err := models.Parse(remote)
	if err != nil {
		c.record(journal.Operation{
			Host: host, Verb: journal.VerbCompare, Filename: remoteName,
			Status: journal.StatusFailed, Detail: err.Error(), StartedAt: started,
		})
		return nil, fmt.Errorf("fileops: decode %q from %s: %w", remoteName, host, err)
	}
	diff := models.Compare(localContents, remoteContents)
	detail := "match"
	if len(diff.Findings) > 0 {
		detail = fmt.Sprintf("%d differences", len(diff.Findings))
	}
	c.record(journal.Operation{
		Host: host, Verb: journal.VerbCompare, Filename: remoteName, SizeBytes: int64(len(remote)),
		Status: journal.StatusOK, Detail: detail, StartedAt: started,
	})
	c.log.Info().Str("host", host).Str("file", remoteName).Int("differences", len(diff.Findings)).Msg("compared file contents")
	return diff, nil
}
