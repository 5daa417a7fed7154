package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

// テスト用のダミー画像（10x10の赤い正方形）を作成するヘルパー
func createDummyImageData(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	buf := new(bytes.Buffer)
	var err error
	switch format {
	case "png":
		err = png.Encode(buf, img)
	case "jpeg":
		err = jpeg.Encode(buf, img, nil)
	default:
		t.Fatalf("unsupported format: %s", format)
	}

	if err != nil {
		t.Fatalf("failed to encode dummy image: %v", err)
	}
	return buf.Bytes()
}

func TestCompressToJPEG(t *testing.T) {
	t.Run("正常なPNG画像をJPEGに圧縮できること", func(t *testing.T) {
		pngData := createDummyImageData(t, "png")

		got, err := CompressToJPEG(pngData, 75)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(got) == 0 {
			t.Error("expected output data, but got empty")
		}

		_, format, err := image.Decode(bytes.NewReader(got))
		if err != nil {
			t.Errorf("failed to decode output image: %v", err)
		}
		if format != "jpeg" {
			t.Errorf("expected format jpeg, got %s", format)
		}
	})

	t.Run("不正なデータを与えた場合にエラーを返すこと", func(t *testing.T) {
		if _, err := CompressToJPEG([]byte("this is not an image"), 75); err == nil {
			t.Error("expected error for invalid data, but got nil")
		}
	})
}

func TestDataURI(t *testing.T) {
	t.Run("画像データがdata URIへ往復できること", func(t *testing.T) {
		pngData := createDummyImageData(t, "png")

		uri, err := EncodeDataURI(pngData)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(uri, "data:image/png;base64,") {
			t.Errorf("unexpected prefix: %s", uri[:30])
		}

		decoded, mimeType, err := DecodeDataURI(uri)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mimeType != "image/png" {
			t.Errorf("expected image/png, got %s", mimeType)
		}
		if !bytes.Equal(decoded, pngData) {
			t.Error("decoded bytes differ from original")
		}
	})

	t.Run("画像でないデータはエンコードを拒否すること", func(t *testing.T) {
		if _, err := EncodeDataURI([]byte("plain text")); err == nil {
			t.Error("expected error for non-image data, but got nil")
		}
	})

	t.Run("data URIでない文字列はデコードを拒否すること", func(t *testing.T) {
		if _, _, err := DecodeDataURI("http://h/a.png"); err == nil {
			t.Error("expected error, but got nil")
		}
	})

	t.Run("IsImageDataが画像シグネチャを判定すること", func(t *testing.T) {
		if !IsImageData(createDummyImageData(t, "jpeg")) {
			t.Error("jpeg data should be detected as image")
		}
		if IsImageData([]byte("not an image")) {
			t.Error("text should not be detected as image")
		}
	})
}
