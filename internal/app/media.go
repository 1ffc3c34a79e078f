package app

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"estate_api/internal/domain"
)

const (
	MaxUploadFiles = 10
	MaxUploadSize  = 10 << 20
	uploadWorkers  = 4
)

// Upload is one file taken from a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type MediaService struct {
	store domain.MediaStore
}

// NewMediaService accepts a nil store; every call then fails with
// domain.ErrUnavailable.
func NewMediaService(st domain.MediaStore) *MediaService {
	return &MediaService{store: st}
}

func (s *MediaService) Upload(ctx context.Context, who domain.Principal, files []Upload) ([]domain.MediaFile, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: media storage is not configured", domain.ErrUnavailable)
	}
	if len(files) == 0 {
		return nil, domain.Invalid("no files uploaded")
	}
	if len(files) > MaxUploadFiles {
		return nil, domain.Invalid(fmt.Sprintf("at most %d files per upload", MaxUploadFiles))
	}
	for _, f := range files {
		if !strings.HasPrefix(f.ContentType, "image/") {
			return nil, domain.Invalid(fmt.Sprintf("%s: only images are accepted", f.Name))
		}
		if f.Size > MaxUploadSize {
			return nil, domain.Invalid(fmt.Sprintf("%s: file exceeds 10 MB", f.Name))
		}
	}

	out := make([]domain.MediaFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			r, err := f.Open()
			if err != nil {
				return err
			}
			defer r.Close()
			name := uuid.NewString() + strings.ToLower(path.Ext(f.Name))
			mf, err := s.store.Upload(gctx, name, r)
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			out[i] = mf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.discard(ctx, out)
		return nil, err
	}
	log.Info().Int64("user_id", who.UserID).Int("files", len(out)).Msg("media uploaded")
	return out, nil
}

// discard removes files stored by a batch that failed part way.
func (s *MediaService) discard(ctx context.Context, files []domain.MediaFile) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	for _, f := range files {
		if f.FileID == "" {
			continue
		}
		if err := s.store.Delete(ctx, f.FileID); err != nil {
			log.Warn().Err(err).Str("file_id", f.FileID).Msg("discard partial upload failed")
		}
	}
}

func (s *MediaService) Delete(ctx context.Context, fileID string) error {
	if s.store == nil {
		return fmt.Errorf("%w: media storage is not configured", domain.ErrUnavailable)
	}
	if strings.TrimSpace(fileID) == "" {
		return domain.Invalid("file id is required")
	}
	return s.store.Delete(ctx, fileID)
}
