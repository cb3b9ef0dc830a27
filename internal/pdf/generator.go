package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultTimeout 是单次渲染允许的最长时间。
const DefaultTimeout = 30 * time.Second

// Generator 使用 go-rod 在无头浏览器中把 HTML 页面打印为 PDF。
// 每次调用启动独立的浏览器进程，互不影响。
type Generator struct {
	browserBin string
	timeout    time.Duration
}

// NewGenerator 构造生成器。browserBin 为空时自动查找本机 Chromium。
func NewGenerator(browserBin string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{browserBin: browserBin, timeout: timeout}
}

// A4，单位英寸；页边距由页面 CSS 控制。
var a4 = struct{ width, height float64 }{width: 8.27, height: 11.69}

// Generate 渲染 HTML 并返回 PDF 字节。浏览器启动与打印共用同一个超时。
func (g *Generator) Generate(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := g.print(ctx, htmlContent)
	if err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("print resume: %w", ctx.Err())
	}
	return data, err
}

func (g *Generator) print(ctx context.Context, htmlContent string) ([]byte, error) {
	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if g.browserBin != "" {
		launch = launch.Bin(g.browserBin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	zero := 0.0
	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        &a4.width,
		PaperHeight:       &a4.height,
		MarginTop:         &zero,
		MarginBottom:      &zero,
		MarginLeft:        &zero,
		MarginRight:       &zero,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}
