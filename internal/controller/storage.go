package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/errors"
)

// FileStorage writes frames to disk as binary PGM images, one file per
// frame, named by capture timestamp and node ID.
type FileStorage struct {
	NodeID string
}

// SaveImage writes the frame's luma plane under folder and returns the
// created filename. The folder is created on first use.
func (fs *FileStorage) SaveImage(ctx context.Context, frame *camera.FrameHandle, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if frame == nil || frame.Len() == 0 {
		return "", errors.Newf("cannot save empty frame").
			Component(ComponentController).
			Category(errors.CategoryValidation).
			Build()
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", errors.Wrap(err).
			Component(ComponentController).
			Category(errors.CategoryResource).
			Context("folder", folder).
			Build()
	}

	name := fmt.Sprintf("%s_%s.pgm", fs.NodeID, frame.Timestamp.Format("20060102T150405.000"))
	path := filepath.Join(folder, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err).
			Component(ComponentController).
			Category(errors.CategoryResource).
			Context("path", path).
			Build()
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "P5\n%d %d\n255\n", frame.Width, frame.Height); err != nil {
		return "", errors.Wrap(err).Component(ComponentController).Category(errors.CategoryResource).Build()
	}
	plane := frame.Data
	if len(plane) > frame.Width*frame.Height {
		plane = plane[:frame.Width*frame.Height]
	}
	if _, err := f.Write(plane); err != nil {
		return "", errors.Wrap(err).Component(ComponentController).Category(errors.CategoryResource).Build()
	}
	return name, nil
}
