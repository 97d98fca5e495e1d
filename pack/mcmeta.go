package pack

import "encoding/json"

const (
	// DefaultFormat is the pack_format written to pack.mcmeta.
	DefaultFormat = 64
	minFormat     = 3
)

type supportedFormats struct {
	MinInclusive int `json:"min_inclusive"`
	MaxInclusive int `json:"max_inclusive"`
}

type packInfo struct {
	Description      string           `json:"description"`
	PackFormat       int              `json:"pack_format"`
	SupportedFormats supportedFormats `json:"supported_formats"`
}

type packMcMeta struct {
	Pack packInfo `json:"pack"`
}

// mcmeta renders the pack.mcmeta document for a pack.
func mcmeta(description string, format int) ([]byte, error) {
	return json.MarshalIndent(packMcMeta{
		Pack: packInfo{
			Description: description,
			PackFormat:  format,
			SupportedFormats: supportedFormats{
				MinInclusive: min(minFormat, format),
				MaxInclusive: format,
			},
		},
	}, "", "  ")
}
