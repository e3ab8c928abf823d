package post

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	// 注册解码器
	_ "image/gif"
	_ "image/png"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// JPEGQuality 栅格化后的压缩质量，对应浏览器 canvas 的 0.8
	JPEGQuality = 80
	// MaxImageDimension 长边上限（像素）
	MaxImageDimension = 1024
	// MaxImageBytes 编码后体积上限
	MaxImageBytes = 512 * 1024
)

var ErrNotImage = errors.New("data is not a supported image")

// EncodeImage 把原始图片数据压缩为有大小上限的 JPEG data URL
func EncodeImage(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrNotImage
	}
	if !filetype.IsImage(raw) {
		kind, _ := filetype.Match(raw)
		return "", errors.Wrapf(ErrNotImage, "detected type %q", kind.MIME.Value)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrap(err, "decode image")
	}

	maxDim := MaxImageDimension
	for {
		scaled := fitWithin(img, maxDim)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return "", errors.Wrap(err, "encode jpeg")
		}

		// 体积超限时逐步缩小，最小到 256
		if buf.Len() > MaxImageBytes && maxDim > 256 {
			maxDim /= 2
			continue
		}

		logrus.Debugf("图片已压缩: 原格式=%s, 尺寸=%v, 大小=%d bytes", format, scaled.Bounds().Size(), buf.Len())
		return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
	}
}

// fitWithin 等比缩放到长边不超过 maxDim
func fitWithin(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
