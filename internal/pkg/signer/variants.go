package signer

const (
	VariantPublic            = "public"
	VariantReviewMedium      = "reviewMedium"
	VariantStandardThumbnail = "standardThumbnail"
	VariantSmall             = "w=400"
	VariantMedium            = "w=800"
	VariantLarge             = "w=1920"
	VariantThumbnail         = "w=200,h=200,fit=cover"
	VariantWebp              = "format=webp"
	VariantWebpQ85           = "format=webp,quality=85"
)

// transformParams 变体 → 附加的图片变换参数，签名之后追加，不参与签名
var transformParams = map[string]string{
	VariantPublic:            "&f=auto&fit=contain&q=90",
	VariantReviewMedium:      "&f=auto",
	VariantStandardThumbnail: "&f=auto&fit=cover&w=300&h=300&q=80",
	VariantSmall:             "&f=auto&fit=scale-down&q=85",
	VariantMedium:            "&f=auto&fit=scale-down&q=85",
	VariantLarge:             "&f=auto&fit=scale-down&q=85",
	VariantThumbnail:         "&f=auto&q=80",
	VariantWebp:              "&f=auto&q=85",
	VariantWebpQ85:           "&f=auto",
}

// TransformParams 未知变体回落到 standardThumbnail 的参数
func TransformParams(variant string) string {
	if p, ok := transformParams[variant]; ok {
		return p
	}
	return transformParams[VariantStandardThumbnail]
}
