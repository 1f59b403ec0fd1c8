package httpapi

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

const (
	defaultTitle          = "北师大十佳大学生投票实时统计"
	defaultSubtitle       = "第二十六届十佳大学生\"最具人气奖\"投票"
	defaultRefreshSeconds = 60
)

//go:embed page.html
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

type pageData struct {
	Title          string
	Subtitle       string
	RefreshSeconds int
}

func renderPage(opts Options) ([]byte, error) {
	data := pageData{
		Title:          opts.Title,
		Subtitle:       opts.Subtitle,
		RefreshSeconds: opts.RefreshSeconds,
	}
	if data.Title == "" {
		data.Title = defaultTitle
	}
	if data.Subtitle == "" {
		data.Subtitle = defaultSubtitle
	}
	if data.RefreshSeconds <= 0 {
		data.RefreshSeconds = defaultRefreshSeconds
	}

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
