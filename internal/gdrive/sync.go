package gdrive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const wavMimeType = "audio/wav"

// Uploader copies persisted recordings into a Drive folder. Uploading the
// same local path again replaces the earlier upload.
type Uploader struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewUploader(ctx context.Context, credPath, folderID string) (*Uploader, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Uploader{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

func (u *Uploader) Upload(ctx context.Context, localPath, label string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	if fileID, ok := u.fileIDs[localPath]; ok {
		_, err = u.service.Files.Update(fileID, &drive.File{}).Media(f).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	doc, err := u.service.Files.Create(&drive.File{
		Name:     RemoteName(localPath, label),
		MimeType: wavMimeType,
		Parents:  []string{u.folderID},
	}).Media(f).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}

	u.fileIDs[localPath] = doc.Id
	return nil
}

// RemoteName prefixes the file name with its label so a flat Drive folder
// still groups recordings by word.
func RemoteName(localPath, label string) string {
	base := filepath.Base(localPath)
	if label == "" {
		return base
	}
	return label + "-" + base
}
