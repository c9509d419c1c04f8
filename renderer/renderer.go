package renderer

import "github.com/ByLCY/raqim/layout"

// Renderer 同时提供字体度量与页面合成，排版引擎只依赖这两个接口。
type Renderer interface {
	layout.Typesetter
	layout.Compositor
}
