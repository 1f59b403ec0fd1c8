package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const loginPage = `<html><head><title>统一身份认证 登录</title></head><body>
<input type="text" name="user"><input type="password" name="pass">
<div class="btn" data-navigate="/site/vote/index?id=1503">登录</div>
</body></html>`

const votePage = `<html><head><title>投票</title></head><body>
<button class="nav" href="stats">查看投票统计</button>
<div class="info-item"><div class="detail"><p>1号 李雷</p></div><div class="vote-box"><span class="num">12票</span></div></div>
<div class="info-item"><div class="detail"><p>2号 韩梅梅</p></div><div class="vote-box"><span class="num">30票</span></div></div>
</body></html>`

func newStatic(t *testing.T) *Static {
	t.Helper()
	s, err := NewStatic(map[string]string{
		"https://vote.example/login":                   loginPage,
		"https://vote.example/site/vote/index?id=1503": votePage,
	})
	require.NoError(t, err)
	return s
}

func TestStaticFind(t *testing.T) {
	ctx := context.Background()
	s := newStatic(t)
	require.NoError(t, s.Navigate(ctx, "https://vote.example/site/vote/index?id=1503"))

	title, err := s.Title(ctx)
	require.NoError(t, err)
	require.Equal(t, "投票", title)

	items, err := s.FindElements(ctx, ByClass, "info-item")
	require.NoError(t, err)
	require.Len(t, items, 2)

	nums, err := s.FindIn(ctx, items[1], ByCSS, ".vote-box .num")
	require.NoError(t, err)
	require.Len(t, nums, 1)
	text, err := s.Text(ctx, nums[0])
	require.NoError(t, err)
	require.Equal(t, "30票", text)

	buttons, err := s.FindElements(ctx, ByXPath, ContainsText("button", "投票统计"))
	require.NoError(t, err)
	require.Len(t, buttons, 1)

	matches, err := s.FindElements(ctx, ByXPath, ContainsText("*", "票"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	missing, err := s.FindElements(ctx, ByCSS, ".btn-statistics")
	require.NoError(t, err)
	require.Empty(t, missing)

	_, err = s.FindElements(ctx, ByXPath, "//div[@id='x']")
	require.Error(t, err)
}

func TestStaticWaitFor(t *testing.T) {
	ctx := context.Background()
	s := newStatic(t)
	require.NoError(t, s.Navigate(ctx, "https://vote.example/login"))

	require.NoError(t, s.WaitFor(ctx, ByCSS, "input[type='password']", time.Second))
	require.ErrorIs(t, s.WaitFor(ctx, ByClass, "info-item", time.Second), ErrTimeout)
}

func TestStaticClickFollowsLinks(t *testing.T) {
	ctx := context.Background()
	s := newStatic(t)
	require.NoError(t, s.Navigate(ctx, "https://vote.example/login"))

	inputs, err := s.FindElements(ctx, ByCSS, "input[type='text']")
	require.NoError(t, err)
	require.NoError(t, s.Type(ctx, inputs[0], "alice"))
	require.Equal(t, "alice", s.Value(inputs[0]))

	btn, ok, err := First(s.FindElements(ctx, ByCSS, "div.btn"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Click(ctx, btn))

	u, err := s.URL(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://vote.example/site/vote/index?id=1503", u)

	// relative link with no saved page
	nav, ok, err := First(s.FindElements(ctx, ByCSS, "button.nav"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Error(t, s.ScriptClick(ctx, nav))
}

func TestStaticScriptsAndDialogs(t *testing.T) {
	ctx := context.Background()
	s := newStatic(t)
	require.NoError(t, s.Navigate(ctx, "https://vote.example/login"))

	require.ErrorIs(t, s.Evaluate(ctx, "1 + 1", nil), ErrScriptUnsupported)

	_, open, err := s.DismissDialog(ctx)
	require.NoError(t, err)
	require.False(t, open)

	s.QueueDialog("用户名或密码错误")
	msg, open, err := s.DismissDialog(ctx)
	require.NoError(t, err)
	require.True(t, open)
	require.Equal(t, "用户名或密码错误", msg)

	_, err = s.Text(ctx, "not an element")
	require.ErrorIs(t, err, ErrStaleElement)
}

func TestDebugOutputSave(t *testing.T) {
	ctx := context.Background()
	s := newStatic(t)
	require.NoError(t, s.Navigate(ctx, "https://vote.example/login"))

	out, err := NewDebugOutput(filepath.Join(t.TempDir(), "debug"))
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
	paths, err := out.Save(ctx, s, "no_statistics_button", now)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out.Directory(), "no_statistics_button_140509.html")}, paths)

	contents, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.Contains(t, string(contents), `type="password"`)
}
