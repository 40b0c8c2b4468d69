package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Open when the asset does not exist.
var ErrNotFound = errors.New("cloudinary asset not found")

const rawResourceType = "raw"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores resource files as raw Cloudinary assets addressed by path.
type Service struct {
	client     *cloudinary.Cloudinary
	cloudName  string
	folder     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client:     cld,
		cloudName:  cfg.CloudName,
		folder:     strings.Trim(cfg.Folder, "/"),
		httpClient: http.DefaultClient,
		logger:     logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Put uploads body under path. Raw assets keep their extension in the public id.
func (s *Service) Put(ctx context.Context, objectPath, contentType string, body io.Reader) error {
	publicID := s.publicID(objectPath)
	params := uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: rawResourceType,
	}

	result, err := s.client.Upload.Upload(ctx, body, params)
	if err != nil {
		return fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Str("content_type", contentType).Msg("file uploaded to cloudinary")
	return nil
}

// Delete destroys the asset stored under path.
func (s *Service) Delete(ctx context.Context, objectPath string) error {
	publicID := s.publicID(objectPath)
	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: rawResourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to delete asset: %s", result.Error.Message)
	}
	// "not found" means there is nothing left to remove.
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to delete asset %q: %s", publicID, result.Result)
	}

	s.logger.Info().Str("public_id", publicID).Msg("file deleted from cloudinary")
	return nil
}

// Open streams the asset from the delivery URL.
func (s *Service) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(objectPath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch asset: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// URL returns the public delivery URL of a raw asset.
func (s *Service) URL(objectPath string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/%s/upload/%s", s.cloudName, rawResourceType, s.publicID(objectPath))
}

func (s *Service) publicID(objectPath string) string {
	clean := strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	if s.folder == "" {
		return clean
	}
	return s.folder + "/" + clean
}
