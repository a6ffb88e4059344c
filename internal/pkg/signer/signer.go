package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultOrigin = "https://imagedelivery.net"
	DefaultTTL    = time.Hour
)

var (
	ErrSigningKeyMissing  = errors.New("signer: signing key is not configured")
	ErrAccountHashMissing = errors.New("signer: account hash is not configured")
	ErrAssetIDEmpty       = errors.New("signer: asset id is empty")
)

// SignedURL 派生值，不持久化
type SignedURL struct {
	Path      string `json:"path"`
	Expiry    int64  `json:"expiry"`
	Signature string `json:"signature"`
	URL       string `json:"url"`
}

// Variants 响应式尺寸
type Variants struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
	Webp   string `json:"webp"`
}

// Bundle 一张图片常用的一组签名 URL
type Bundle struct {
	OriginalURL  string   `json:"originalUrl"`
	WebpURL      string   `json:"webpUrl"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Variants     Variants `json:"variants"`
	ExpiresAt    int64    `json:"expiresAt"`
}

// Signer 只依赖配置与时钟，不做任何 I/O
type Signer struct {
	accountHash string
	key         []byte
	origin      string
	ttl         time.Duration
	now         func() time.Time
}

type Option func(*Signer)

func WithOrigin(origin string) Option {
	return func(s *Signer) {
		if origin != "" {
			s.origin = strings.TrimRight(origin, "/")
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// New 缺少签名密钥或账户 hash 属于配置错误，启动时直接失败
func New(accountHash, key string, opts ...Option) (*Signer, error) {
	if key == "" {
		return nil, ErrSigningKeyMissing
	}
	if accountHash == "" {
		return nil, ErrAccountHashMissing
	}
	s := &Signer{
		accountHash: accountHash,
		key:         []byte(key),
		origin:      DefaultOrigin,
		ttl:         DefaultTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign 生成 <origin>/<hash>/<id>/<variant>?exp=<unix>&sig=<hex><params>
func (s *Signer) Sign(assetID, variant string) (*SignedURL, error) {
	if assetID == "" {
		return nil, ErrAssetIDEmpty
	}
	return s.signAt(assetID, variant, s.now().Add(s.ttl).Unix()), nil
}

func (s *Signer) signAt(assetID, variant string, exp int64) *SignedURL {
	if variant == "" {
		variant = VariantPublic
	}
	path := "/" + s.accountHash + "/" + assetID + "/" + variant
	sig := computeSignature(s.key, path, exp)

	return &SignedURL{
		Path:      path,
		Expiry:    exp,
		Signature: sig,
		URL:       s.origin + path + "?exp=" + strconv.FormatInt(exp, 10) + "&sig=" + sig + TransformParams(variant),
	}
}

// SignAll 原图、webp、缩略图及三档响应式尺寸
func (s *Signer) SignAll(assetID string) (*Bundle, error) {
	if assetID == "" {
		return nil, ErrAssetIDEmpty
	}
	// 整组共用一个过期时间
	exp := s.now().Add(s.ttl).Unix()

	return &Bundle{
		OriginalURL:  s.signAt(assetID, VariantPublic, exp).URL,
		WebpURL:      s.signAt(assetID, VariantWebp, exp).URL,
		ThumbnailURL: s.signAt(assetID, VariantThumbnail, exp).URL,
		Variants: Variants{
			Small:  s.signAt(assetID, VariantSmall, exp).URL,
			Medium: s.signAt(assetID, VariantMedium, exp).URL,
			Large:  s.signAt(assetID, VariantLarge, exp).URL,
			Webp:   s.signAt(assetID, VariantWebpQ85, exp).URL,
		},
		ExpiresAt: exp,
	}, nil
}

// Verify 服务端视角的校验：只对 path 与 exp 重新计算签名，变换参数不参与
func Verify(key, rawURL string, now time.Time) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	q := u.Query()
	expStr, sig := q.Get("exp"), q.Get("sig")
	if expStr == "" || sig == "" {
		return false
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return false
	}
	if now.Unix() > exp {
		return false
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(computeSignature([]byte(key), u.Path, exp))
	return hmac.Equal(got, want)
}

func computeSignature(key []byte, path string, exp int64) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(path + "?exp=" + strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
