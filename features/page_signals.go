package features

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"phishguard/evidence"
)

// favicon checks where the first favicon link points. A page without one is
// neutral.
func favicon(ev *evidence.Evidence) (float64, error) {
	links, err := ev.Document().Find("link[href]")
	if err != nil {
		return 0, err
	}

	netloc := ev.Netloc()
	result := Neutral
	links.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !hasRelToken(s, "icon") && !strings.Contains(strings.ToLower(href), "favicon") {
			return true
		}

		if strings.Contains(href, netloc) || strings.HasPrefix(href, "/") || strings.Contains(href, ev.URL) {
			result = Benign
		} else {
			result = Suspicious
		}
		return false
	})

	return result, nil
}

func hasRelToken(s *goquery.Selection, token string) bool {
	rel, ok := s.Attr("rel")
	if !ok {
		return false
	}
	for _, t := range strings.Fields(rel) {
		if t == token {
			return true
		}
	}
	return false
}

const resourceSelector = "img[src], audio[src], embed[src], iframe[src], script[src]"

// requestURL rates the share of embedded resources loaded from elsewhere.
// Sources naming the page URL or its host count as local, as do bare
// single-dot names such as "logo.png".
func requestURL(ev *evidence.Evidence) (float64, error) {
	resources, err := ev.Document().Find(resourceSelector)
	if err != nil {
		return 0, err
	}

	netloc := ev.Netloc()
	total, external := 0, 0
	resources.Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		total++
		if strings.Contains(src, ev.URL) || strings.Contains(src, netloc) || strings.Count(src, ".") == 1 {
			return
		}
		external++
	})

	switch perc := percent(external, total); {
	case perc < 22.0:
		return Benign, nil
	case perc < 61.0:
		return Neutral, nil
	default:
		return Suspicious, nil
	}
}

// anchorURL rates the share of links that go nowhere (#, javascript:) or
// leave the site, counting mailto: links as unsafe too. Only the href is
// lower-cased; the host and page URL are matched as written, so a mixed-case
// host treats its own absolute links as off-site.
func anchorURL(ev *evidence.Evidence) (float64, error) {
	anchors, err := ev.Document().Find("a[href]")
	if err != nil {
		return 0, err
	}

	netloc := ev.Netloc()
	pageURL := ev.URL
	total, unsafe := 0, 0
	anchors.Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.ToLower(href)
		total++

		switch {
		case strings.HasPrefix(href, "#"),
			strings.Contains(href, "javascript"),
			strings.Contains(href, "mailto:"):
			unsafe++
		case !strings.Contains(href, netloc) && !strings.Contains(href, pageURL):
			unsafe++
		}
	})

	switch perc := percent(unsafe, total); {
	case perc < 31.0:
		return Benign, nil
	case perc < 67.0:
		return Neutral, nil
	default:
		return Suspicious, nil
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
