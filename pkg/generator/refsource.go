package generator

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/chat-image-kit/pkg/imgutil"
)

const (
	// UseImageCompression は参照画像を添付前に JPEG 圧縮するかどうかです。
	UseImageCompression = true
	// ImageCompressionQuality は圧縮時の JPEG 品質です。
	ImageCompressionQuality = 75
)

// ReferenceSource はリモートの画像ソースを参照画像用の data URI に解決します。
// http(s):// は httpClient で、gs:// は reader で取得します。
type ReferenceSource struct {
	httpClient httpkit.ClientInterface
	reader     remoteio.InputReader
}

// NewReferenceSource は依存関係を注入して ReferenceSource を初期化します。
// reader は nil を許容します（gs:// 非対応動作）。
func NewReferenceSource(httpClient httpkit.ClientInterface, reader remoteio.InputReader) (*ReferenceSource, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("httpClient is required")
	}
	return &ReferenceSource{httpClient: httpClient, reader: reader}, nil
}

// Load はソース URI を base64 データ URI に解決します。
// すでに data URI であればそのまま返します。
func (s *ReferenceSource) Load(ctx context.Context, rawURL string) (string, error) {
	if strings.HasPrefix(rawURL, "data:image/") {
		return rawURL, nil
	}

	data, err := s.fetchImageData(ctx, rawURL)
	if err != nil {
		return "", err
	}

	finalData := data
	if UseImageCompression {
		if compressed, err := imgutil.CompressToJPEG(data, ImageCompressionQuality); err == nil {
			finalData = compressed
		}
	}

	uri, err := imgutil.EncodeDataURI(finalData)
	if err != nil {
		return "", fmt.Errorf("参照画像として扱えないデータです (%s): %w", rawURL, err)
	}
	return uri, nil
}

func (s *ReferenceSource) fetchImageData(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.HasPrefix(rawURL, "gs://") {
		if s.reader == nil {
			return nil, fmt.Errorf("gs:// ソースは設定されていません: %s", rawURL)
		}
		rc, err := s.reader.Open(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	if safe, err := IsSafeURL(rawURL); err != nil || !safe {
		return nil, fmt.Errorf("安全ではないURLが指定されました: %w", err)
	}
	return s.httpClient.FetchBytes(ctx, rawURL)
}

// IsSafeURL は、SSRF (Server-Side Request Forgery) 対策として URL を検証します。
// 許可されたスキーム (http, https) かつ、プライベートIPやループバックアドレスを
// ターゲットにしていないことを確認します。
func IsSafeURL(rawURL string) (bool, error) {
	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("URLパース失敗: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, fmt.Errorf("不許可スキーム: %s", parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolved, err := net.LookupIP(host)
		if err != nil {
			return false, fmt.Errorf("ホスト '%s' の名前解決に失敗しました: %w", host, err)
		}
		ips = resolved
	}

	for _, ip := range ips {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return false, fmt.Errorf("制限されたネットワークへのアクセスを検知: %s", ip.String())
		}
	}

	return true, nil
}
