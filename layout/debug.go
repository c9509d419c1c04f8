package layout

import (
	"encoding/json"
	"os"
)

// DebugDump 是 -debug 输出的内容：解析后的几何与文本流，以及排版统计。
type DebugDump struct {
	Geometry Geometry  `json:"geometry"`
	Document *Document `json:"document"`
	Stats    Stats     `json:"stats"`
}

// WriteDebugJSON 将标准化后的文本流输出为 JSON，便于调试样式继承与行距换算。
func WriteDebugJSON(dump DebugDump, path string) error {
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
