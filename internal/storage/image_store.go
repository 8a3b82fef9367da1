package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/maputo/user-service/internal/config"
)

const (
	// ImageExtension is appended to every stored profile picture.
	ImageExtension = ".jpg"

	userImagePath        = "/user/image/"
	temporaryProfilePath = "/user/image/profile/"
)

var (
	// ErrImageNotFound is returned when no stored image matches.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidImagePath rejects names that would escape the user folder.
	ErrInvalidImagePath = errors.New("invalid image path")
)

// ImageStore keeps one profile picture per user under dir/<username>/.
type ImageStore struct {
	dir           string
	publicBaseURL string
	avatarBaseURL string
	avatarTimeout time.Duration
	logger        *zap.Logger
}

// NewImageStore creates the root folder if needed.
func NewImageStore(cfg config.StorageConfig, logger *zap.Logger) (*ImageStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.ImageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &ImageStore{
		dir:           cfg.ImageDir,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		avatarBaseURL: cfg.TempImageBaseURL,
		avatarTimeout: cfg.TempImageTimeout(),
		logger:        logger,
	}, nil
}

// SaveProfileImage replaces the user's picture and returns its public URL.
func (s *ImageStore) SaveProfileImage(ctx context.Context, username string, image io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	folder, err := s.userFolder(username)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create user folder: %w", err)
	}

	filename := username + ImageExtension
	target := filepath.Join(folder, filename)
	tmp, err := os.CreateTemp(folder, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	s.logger.Info("saved profile image", zap.String("username", username), zap.String("path", target))
	return s.publicBaseURL + userImagePath + url.PathEscape(username) + "/" + url.PathEscape(filename), nil
}

// TemporaryImageURL points at the generated avatar served until an upload happens.
func (s *ImageStore) TemporaryImageURL(username string) string {
	return s.publicBaseURL + temporaryProfilePath + url.PathEscape(username)
}

// Open reads a stored picture.
func (s *ImageStore) Open(username, filename string) ([]byte, error) {
	folder, err := s.userFolder(username)
	if err != nil {
		return nil, err
	}
	if !validSegment(filename) {
		return nil, ErrInvalidImagePath
	}
	data, err := os.ReadFile(filepath.Join(folder, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// FetchTemporaryImage downloads the generated avatar for username.
func (s *ImageStore) FetchTemporaryImage(ctx context.Context, username string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)

	agent := fiber.Get(s.avatarBaseURL + url.PathEscape(username)).SetResponse(resp)
	if s.avatarTimeout > 0 {
		agent.Timeout(s.avatarTimeout)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, "", fmt.Errorf("fetch avatar: %w", errors.Join(errs...))
	}
	if status != fiber.StatusOK {
		return nil, "", fmt.Errorf("fetch avatar: unexpected status %d", status)
	}

	contentType := string(resp.Header.ContentType())
	if contentType == "" {
		contentType = "image/png"
	}
	return append([]byte(nil), body...), contentType, nil
}

func (s *ImageStore) userFolder(username string) (string, error) {
	if !validSegment(username) {
		return "", ErrInvalidImagePath
	}
	return filepath.Join(s.dir, username), nil
}

func validSegment(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}
