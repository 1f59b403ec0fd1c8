package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseBody(t *testing.T, markup string) *html.Node {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	var body *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	require.NotNil(t, body)
	return body
}

func TestInnerText(t *testing.T) {
	body := parseBody(t, `<div class="detail"><p>3号  张伟</p><p>心理学部</p><script>var x = 1;</script></div>`)
	require.Equal(t, "3号 张伟\n心理学部", InnerText(body))
	require.Equal(t, "3号 张伟", FirstLine(InnerText(body)))
}

func TestInnerTextBreaks(t *testing.T) {
	body := parseBody(t, `<span>first<br>second</span>`)
	require.Equal(t, "first\nsecond", InnerText(body))
	require.Equal(t, "firstsecond", GetText(body))
}

func TestOwnText(t *testing.T) {
	body := parseBody(t, `<button>查看<span>投票</span>统计</button>`)
	button := body.FirstChild
	require.Equal(t, "查看统计", OwnText(button))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "12号 李娜", Normalize("１２号　李娜"))
	require.Equal(t, "667票", Normalize("６６７票"))
}
