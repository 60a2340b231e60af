package render

import (
	"fmt"

	"github.com/John-Robertt/vless2clash/internal/model"
	"github.com/John-Robertt/vless2clash/internal/sub/vless"
	"github.com/John-Robertt/vless2clash/internal/yamlenc"
)

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// ClashDocument wraps proxy entries into the top-level `proxies:` list.
func ClashDocument(proxies ...*yamlenc.Map) *yamlenc.Map {
	items := make([]yamlenc.Value, 0, len(proxies))
	for _, p := range proxies {
		items = append(items, yamlenc.Mapping(p))
	}
	return yamlenc.NewMap().Set("proxies", yamlenc.Seq(items...))
}

// RenderClash maps every link and serializes the resulting document.
func RenderClash(links []vless.ParsedLink) (string, error) {
	if len(links) == 0 {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "render input must not be empty",
				Stage:   "render",
			},
		}
	}
	proxies := make([]*yamlenc.Map, 0, len(links))
	for _, l := range links {
		proxies = append(proxies, ClashProxy(l))
	}
	return yamlenc.Marshal(yamlenc.Mapping(ClashDocument(proxies...))), nil
}
