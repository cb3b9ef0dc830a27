package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// CountPages 解析 PDF 并返回页数，用于校验打印结果。
func CountPages(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, errors.New("empty pdf")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	pages := reader.NumPage()
	if pages <= 0 {
		return 0, errors.New("pdf has no pages")
	}
	return pages, nil
}
