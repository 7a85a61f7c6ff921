package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/adampresley/photoportfolio/pkg/models"
	"github.com/alitto/pond/v2"
	"github.com/dustin/go-humanize"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DataURLPrefix = "data:image/jpeg;base64,"

	DefaultMaxImageWidth  uint  = 1000
	DefaultImageQuality   int   = 80
	DefaultMaxUploadBytes int64 = 20 << 20
)

type ImageServicer interface {
	Busy() bool
	Transcode(ctx context.Context, r io.Reader) (string, error)
	TranscodeAsync(ctx context.Context, r io.Reader) (<-chan TranscodeResult, error)
	Stop()
}

type TranscodeResult struct {
	DataURL string
	Err     error
}

type ImageServiceConfig struct {
	MaxUploadBytes     int64
	MaxWidth           uint
	Quality            int
	ShutdownCtx        context.Context
	UpscaleSmallImages bool
}

/*
ImageService turns uploaded image files into JPEG data URLs no wider
than maxWidth. Only one image is processed at a time across the whole
process; a request made while another is in flight fails with
models.ErrBusy.
*/
type ImageService struct {
	busy               *atomic.Bool
	maxUploadBytes     int64
	maxWidth           uint
	pool               pond.Pool
	quality            int
	upscaleSmallImages bool
}

func NewImageService(config ImageServiceConfig) ImageService {
	if config.MaxWidth == 0 {
		config.MaxWidth = DefaultMaxImageWidth
	}

	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = DefaultImageQuality
	}

	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}

	if config.ShutdownCtx == nil {
		config.ShutdownCtx = context.Background()
	}

	return ImageService{
		busy:               &atomic.Bool{},
		maxUploadBytes:     config.MaxUploadBytes,
		maxWidth:           config.MaxWidth,
		pool:               pond.NewPool(1, pond.WithContext(config.ShutdownCtx)),
		quality:            config.Quality,
		upscaleSmallImages: config.UpscaleSmallImages,
	}
}

func (s ImageService) Busy() bool {
	return s.busy.Load()
}

/*
Transcode blocks until the image has been processed. If ctx is done by
the time processing finishes, the result is thrown away and
models.ErrDiscarded is returned. The work itself is never interrupted.
*/
func (s ImageService) Transcode(ctx context.Context, r io.Reader) (string, error) {
	var (
		err    error
		result <-chan TranscodeResult
	)

	if result, err = s.TranscodeAsync(ctx, r); err != nil {
		return "", err
	}

	res := <-result
	return res.DataURL, res.Err
}

/*
TranscodeAsync starts processing and returns a channel that receives
exactly one result. The busy indicator is cleared before the result
is delivered.
*/
func (s ImageService) TranscodeAsync(ctx context.Context, r io.Reader) (<-chan TranscodeResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, models.ErrBusy
	}

	result := make(chan TranscodeResult, 1)
	once := sync.Once{}

	finish := func(res TranscodeResult) {
		once.Do(func() {
			s.busy.Store(false)
			result <- res
			close(result)
		})
	}

	task := s.pool.Submit(func() {
		dataURL, err := s.transcode(r)

		if err == nil && ctx.Err() != nil {
			slog.Info("discarding transcoded image, requester is gone", "error", ctx.Err())
			dataURL = ""
			err = fmt.Errorf("%w: %w", models.ErrDiscarded, ctx.Err())
		}

		finish(TranscodeResult{DataURL: dataURL, Err: err})
	})

	go func() {
		if err := task.Wait(); err != nil {
			finish(TranscodeResult{Err: fmt.Errorf("error running image transcode: %w", err)})
		}
	}()

	return result, nil
}

func (s ImageService) Stop() {
	_ = s.pool.Stop().Wait()
}

func (s ImageService) transcode(r io.Reader) (string, error) {
	var (
		err  error
		data []byte
		img  image.Image
		buf  bytes.Buffer
	)

	if data, err = io.ReadAll(io.LimitReader(r, s.maxUploadBytes+1)); err != nil {
		return "", fmt.Errorf("error reading image: %w", err)
	}

	if int64(len(data)) > s.maxUploadBytes {
		return "", fmt.Errorf("%w: image is larger than %s", models.ErrValidation, humanize.Bytes(uint64(s.maxUploadBytes)))
	}

	if img, _, err = image.Decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrDecode, err)
	}

	bounds := img.Bounds()
	width, height := ScaledSize(uint(bounds.Dx()), uint(bounds.Dy()), s.maxWidth, s.upscaleSmallImages)

	if width != uint(bounds.Dx()) || height != uint(bounds.Dy()) {
		img = resize.Resize(width, height, img, resize.Lanczos3)
	}

	if err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrEncode, err)
	}

	slog.Debug("image transcoded",
		"originalWidth", bounds.Dx(),
		"originalHeight", bounds.Dy(),
		"width", width,
		"height", height,
		"inputSize", humanize.Bytes(uint64(len(data))),
		"outputSize", humanize.Bytes(uint64(buf.Len())),
	)

	return DataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

/*
ScaledSize computes the output size for an image of width x height.
Images wider than maxWidth are scaled down to exactly maxWidth.
Narrower images keep their size unless upscale is set, in which case
they are scaled up to maxWidth. Height always follows the same scale
factor, rounded, and is never less than 1.
*/
func ScaledSize(width, height, maxWidth uint, upscale bool) (uint, uint) {
	if width == 0 || height == 0 {
		return width, height
	}

	if width <= maxWidth && !upscale {
		return width, height
	}

	scale := float64(maxWidth) / float64(width)
	newHeight := uint(math.Round(float64(height) * scale))

	if newHeight < 1 {
		newHeight = 1
	}

	return maxWidth, newHeight
}
