package onewechat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"votewatch/lib/htmlutil"
)

var (
	nameLineRegex = regexp.MustCompile(`^\s*(\d+)\s*号\s*(.*?)\s*$`)
	votesRegex    = regexp.MustCompile(`(\d[\d,]*)\s*票`)
)

// ParseNameLine parses the "<N>号 <name>" line of a candidate entry. When
// the number cannot be parsed it returns 0 and the whole line as the name.
func ParseNameLine(text string) (int, string, error) {
	line := htmlutil.FirstLine(htmlutil.Normalize(text))
	if line == "" {
		return 0, "", fmt.Errorf("empty name line")
	}

	groups := nameLineRegex.FindStringSubmatch(line)
	if groups == nil {
		return 0, line, nil
	}
	number, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, line, nil
	}
	name := htmlutil.CollapseSpace(groups[2])
	if name == "" {
		return 0, "", fmt.Errorf("no name after number in %q", line)
	}
	return number, name, nil
}

// ParseVotes reads "<N>票" or a bare integer.
func ParseVotes(text string) (int, error) {
	normalized := htmlutil.CollapseSpace(htmlutil.Normalize(text))

	digits := normalized
	if groups := votesRegex.FindStringSubmatch(normalized); groups != nil {
		digits = groups[1]
	}
	digits = strings.ReplaceAll(digits, ",", "")

	votes, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parse votes %q: %w", text, err)
	}
	if votes < 0 {
		return 0, fmt.Errorf("negative vote count %q", text)
	}
	return votes, nil
}
