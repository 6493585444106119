// Package images resizes uploaded photos and writes them as JPEG under the
// public static directory with deterministic names.
package images

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

const jpegQuality = 90

// User photos are square avatars; tour images are wide hero shots.
const (
	UserPhotoSize   = 500
	TourImageWidth  = 2000
	TourImageHeight = 1333
)

type Store struct {
	dir string // public image root, e.g. public/img
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SaveUserPhoto center-crops the upload to a square avatar and returns the
// stored filename.
func (s *Store) SaveUserPhoto(r io.Reader, userID string) (string, error) {
	img, err := decode(r)
	if err != nil {
		return "", err
	}
	name := UserPhotoName(userID, time.Now())
	dst := imaging.Fill(img, UserPhotoSize, UserPhotoSize, imaging.Center, imaging.Lanczos)
	if err := s.write(dst, "users", name); err != nil {
		return "", err
	}
	return name, nil
}

// SaveTourImage resizes an upload to the tour aspect and returns the stored
// filename. suffix is "cover" for the hero image or the 1-based index for
// gallery images.
func (s *Store) SaveTourImage(r io.Reader, tourID, suffix string) (string, error) {
	img, err := decode(r)
	if err != nil {
		return "", err
	}
	name := TourImageName(tourID, suffix, time.Now())
	dst := imaging.Fill(img, TourImageWidth, TourImageHeight, imaging.Center, imaging.Lanczos)
	if err := s.write(dst, "tours", name); err != nil {
		return "", err
	}
	return name, nil
}

// UserPhotoName builds user-<id>-<unixms>.jpeg.
func UserPhotoName(userID string, now time.Time) string {
	return fmt.Sprintf("user-%s-%d.jpeg", userID, now.UnixMilli())
}

// TourImageName builds tour-<id>-<unixms>-<suffix>.jpeg.
func TourImageName(tourID, suffix string, now time.Time) string {
	return fmt.Sprintf("tour-%s-%d-%s.jpeg", tourID, now.UnixMilli(), suffix)
}

func decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("not an image, please upload only images: %w", err)
	}
	return img, nil
}

func (s *Store) write(img image.Image, sub, name string) error {
	dir := filepath.Join(s.dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating image directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("saving image %s: %w", path, err)
	}
	return nil
}
