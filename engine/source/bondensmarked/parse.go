package bondensmarked

import (
	"regexp"
	"strings"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
)

// Selector heuristics for the directory markup. The site gives producer cards
// as anchors onto /produsent/ detail pages, with the display name in an h2/h3
// or a font-bold element, a teaser in the first paragraph, and a Cloudinary
// card image.
var (
	anchorRe  = regexp.MustCompile(`(?s)<a\s[^>]*href="(/produsent/[^"]*)"[^>]*>(.*?)</a>`)
	headingRe = regexp.MustCompile(`(?s)<h[23][^>]*>(.*?)</h[23]>`)
	boldRe    = regexp.MustCompile(`(?s)<[a-z][a-z0-9]*\s[^>]*class="[^"]*font-bold[^"]*"[^>]*>(.*?)</`)
	paraRe    = regexp.MustCompile(`(?s)<p[^>]*>(.*?)</p>`)
	imgRe     = regexp.MustCompile(`<img[^>]*\ssrc="([^"]+)"`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)

	heightParam = regexp.MustCompile(`h_\d+`)
	widthParam  = regexp.MustCompile(`w_\d+`)

	// postalRe matches a Norwegian postal code followed by a place name.
	postalRe = regexp.MustCompile(`(\d{4}\s+[A-ZÆØÅa-zæøå]+)`)
)

// ParseCards extracts producer cards from a listing page. Card URLs are left
// relative; the caller joins them onto the site base. Anchors without a
// usable name (under three characters) are skipped.
func ParseCards(html string) []card {
	var cards []card
	for _, m := range anchorRe.FindAllStringSubmatch(html, -1) {
		href, inner := m[1], m[2]

		name := headingText(inner)
		if name == "" {
			name = firstLine(inner)
		}
		if len([]rune(name)) <= 2 {
			continue
		}

		description := ""
		if pm := paraRe.FindStringSubmatch(inner); pm != nil {
			description = domain.StripHTML(pm[1])
		}

		image := ""
		if im := imgRe.FindStringSubmatch(inner); im != nil && strings.Contains(im[1], "cloudinary") {
			image = UpscaleImageURL(im[1])
		}

		cards = append(cards, card{
			Name:        name,
			URL:         href,
			Description: description,
			Image:       image,
		})
	}
	return cards
}

// ParseDetails extracts the optional backfill fields from a producer detail
// page: the large Cloudinary feature image (only /BM/ assets qualify), the
// first paragraph, and a postal-code address if one appears anywhere.
func ParseDetails(html string) details {
	var d details

	for _, m := range imgRe.FindAllStringSubmatch(html, -1) {
		src := m[1]
		if strings.Contains(src, "cloudinary") && strings.Contains(src, "/BM/") {
			d.Image = UpscaleImageURL(src)
			break
		}
	}

	if pm := paraRe.FindStringSubmatch(html); pm != nil {
		d.Description = domain.StripHTML(pm[1])
	}

	if am := postalRe.FindStringSubmatch(html); am != nil {
		d.Address = am[1]
	}

	return d
}

// UpscaleImageURL rewrites the Cloudinary height/width parameters embedded in
// a card image URL to a fixed higher resolution.
func UpscaleImageURL(src string) string {
	src = heightParam.ReplaceAllString(src, "h_600")
	return widthParam.ReplaceAllString(src, "w_800")
}

// headingText returns the first non-empty heading-like candidate.
func headingText(inner string) string {
	if hm := headingRe.FindStringSubmatch(inner); hm != nil {
		if t := domain.StripHTML(hm[1]); t != "" {
			return t
		}
	}
	if bm := boldRe.FindStringSubmatch(inner); bm != nil {
		if t := domain.StripHTML(bm[1]); t != "" {
			return t
		}
	}
	return ""
}

// firstLine flattens markup to linebreak-separated text and returns the first
// non-empty line. Loose fallback for cards without a heading element.
func firstLine(inner string) string {
	text := tagRe.ReplaceAllString(inner, "\n")
	for _, line := range strings.Split(text, "\n") {
		if t := domain.StripHTML(line); t != "" {
			return t
		}
	}
	return ""
}
