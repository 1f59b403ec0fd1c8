package onewechat

import (
	"context"
	"strings"
	"sync"
	"testing"

	"votewatch/internal/browser"

	"github.com/stretchr/testify/require"
)

const (
	targetURL = "https://vote.example/site/vote/index?id=1503"
	homeURL   = "https://vote.example/site/vote/home"
	statsURL  = "https://vote.example/site/vote/statistics"
)

const loginMarkup = `<html><head><title>统一身份认证 登录</title></head><body>
<input type="text"><input type="password">
<div class="btn" data-navigate="/site/vote/home">登录</div>
<p class="error">用户名或密码错误</p>
</body></html>`

const deadEndLoginMarkup = `<html><head><title>统一身份认证 登录</title></head><body>
<input type="text"><input type="password">
<div class="btn">登录</div>
<p class="error">用户名或密码错误</p>
</body></html>`

const homeMarkup = `<html><head><title>评选活动</title></head><body>
<button class="nav" data-navigate="/site/vote/statistics">查看投票统计</button>
</body></html>`

const statsMarkup = `<html><head><title>评选活动</title></head><body>
<div class="info-item">
  <img src="https://img.example/1.png">
  <div class="detail"><p>1号  陈依皓</p><span>心理学部</span></div>
  <div class="vote-box"><span class="num">667票</span></div>
  <div class="btn-vote">已投票</div>
</div>
<div class="info-item">
  <img data-src="https://img.example/2.png">
  <div class="detail"><p>２号 李雷</p></div>
  <div class="vote-box"><span class="num">1,204票</span></div>
  <div class="btn-vote">投票</div>
</div>
<div class="info-item">
  <div class="detail"><p>3号 韩梅梅</p></div>
  <div class="vote-box"><span class="num">待统计</span></div>
</div>
<div class="info-item">
  <div class="detail"><p>特邀嘉宾</p></div>
  <div class="vote-box">667</div>
</div>
<div class="info-item">
  <div class="detail"><p>5号 王芳</p></div>
  <div class="vote-box"><span class="num">12票</span></div>
</div>
</body></html>`

// scripted is a static driver whose script evaluation, clicks and typing
// can be replaced and whose calls are counted.
type scripted struct {
	*browser.Static

	mu           sync.Mutex
	evaluate     func(s *scripted, script string, out any) error
	click        func(s *scripted, el browser.Element) error
	scriptClick  func(s *scripted, el browser.Element) error
	typeErr      error
	scripts      []string
	typed        int
	clicks       int
	scriptClicks int
}

func newScripted(t *testing.T, pages map[string]string) *scripted {
	t.Helper()
	static, err := browser.NewStatic(pages)
	require.NoError(t, err)
	return &scripted{Static: static}
}

func (s *scripted) Evaluate(ctx context.Context, script string, out any) error {
	s.mu.Lock()
	s.scripts = append(s.scripts, script)
	evaluate := s.evaluate
	s.mu.Unlock()
	if evaluate == nil {
		return s.Static.Evaluate(ctx, script, out)
	}
	return evaluate(s, script, out)
}

func (s *scripted) Type(ctx context.Context, el browser.Element, text string) error {
	s.mu.Lock()
	s.typed++
	typeErr := s.typeErr
	s.mu.Unlock()
	if typeErr != nil {
		return typeErr
	}
	return s.Static.Type(ctx, el, text)
}

func (s *scripted) Click(ctx context.Context, el browser.Element) error {
	s.mu.Lock()
	s.clicks++
	click := s.click
	s.mu.Unlock()
	if click == nil {
		return s.Static.Click(ctx, el)
	}
	return click(s, el)
}

func (s *scripted) ScriptClick(ctx context.Context, el browser.Element) error {
	s.mu.Lock()
	s.scriptClicks++
	scriptClick := s.scriptClick
	s.mu.Unlock()
	if scriptClick == nil {
		return s.Static.ScriptClick(ctx, el)
	}
	return scriptClick(s, el)
}

func (s *scripted) scriptsContaining(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, script := range s.scripts {
		if strings.Contains(script, substr) {
			n++
		}
	}
	return n
}
