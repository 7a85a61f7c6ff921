package services

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRecordService(t *testing.T, quotaBytes int64) RecordService {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "records.db")

	db, err := ConnectDatabase(dsn)
	require.NoError(t, err)
	require.NoError(t, MigrateDatabase(db))

	return NewRecordService(RecordServiceConfig{
		DB:         db,
		QuotaBytes: quotaBytes,
	})
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, dataURL string) image.Config {
	t.Helper()

	require.True(t, strings.HasPrefix(dataURL, DataURLPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, DataURLPrefix))
	require.NoError(t, err)

	config, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	return config
}
