package handlers

import (
	"github.com/gin-contrib/multitemplate"
)

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; line-height: 1.6; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
.ok { color: #2e7d32; } .bad { color: #c62828; }
.question { border-bottom: 1px solid #eee; padding: 1em 0; }
</style>
</head>
<body>
<p>{{.UserName}}（{{.UserID}}）</p>
{{template "content" .}}
</body>
</html>{{end}}`

const historyTemplate = `{{define "content"}}
<h1>{{.Title}}</h1>
{{if .Records}}
<table>
<tr><th>时间</th><th>得分</th><th>题量</th><th>分数</th><th>模式</th><th></th></tr>
{{range .Records}}
<tr>
<td>{{.Time.Format "2006-01-02 15:04:05"}}</td>
<td>{{.Score}}</td>
<td>{{.Total}}</td>
<td>{{.Points}}</td>
<td>{{.Mode}}</td>
<td><a href="/history/{{.RunID}}">查看</a></td>
</tr>
{{end}}
</table>
{{else}}
<p>暂无历史记录。</p>
{{end}}
{{end}}`

const runTemplate = `{{define "content"}}
<h1>{{.Title}}</h1>
<p><a href="/history">返回历史记录</a></p>
<h2>学习建议</h2>
{{range .Paragraphs}}<p>{{.}}</p>{{end}}
<h2>逐题回顾</h2>
{{range .Entries}}
<div class="question">
<p><strong>{{.Index}}.</strong> {{.Stem}}</p>
<p>A. {{.A}}<br>B. {{.B}}<br>C. {{.C}}<br>D. {{.D}}</p>
<p>你的答案：{{if .YourAnswer}}{{.YourAnswer}}{{else}}未作答{{end}}
｜正确答案：{{.Correct}}
{{if .IsCorrect}}<span class="ok">✓</span>{{else}}<span class="bad">✗</span>{{end}}</p>
<p>指标：{{.IndicatorID}} {{.IndicatorName}}｜阶段：{{.Phase}}</p>
<p>{{.Explanation.WhyRight}}</p>
<ol>{{range .Explanation.HowTo}}<li>{{.}}</li>{{end}}</ol>
<p>{{.Explanation.Edge}}</p>
</div>
{{end}}
{{end}}`

const (
	pageHistory = "history"
	pageRun     = "run"
	pageError   = "error"
)

const errorTemplate = `{{define "content"}}<h1>{{.Title}}</h1><p>{{.Message}}</p><p><a href="/history">返回历史记录</a></p>{{end}}`

func newRenderer() multitemplate.Renderer {
	r := multitemplate.NewRenderer()
	for name, content := range map[string]string{
		pageHistory: historyTemplate,
		pageRun:     runTemplate,
		pageError:   errorTemplate,
	} {
		r.AddFromString(name, `{{template "layout" .}}`+layoutTemplate+content)
	}
	return r
}
