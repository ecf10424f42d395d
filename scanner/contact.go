package scanner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/roomsage/bookscan/models"
)

var (
	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// North-American and general international formats.
	rePhone = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}|\+\d{1,3}[\s.\-]?\d{1,4}(?:[\s.\-]\d{2,4}){2,4}`)
	reRooms = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:guest\s+rooms?|rooms?|suites?|bedrooms?|cottages?|cabins?|units?)\b`)

	// Image filenames and asset hashes produce false email hits.
	reAssetEmail = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|webp|css|js)$`)
)

// ExtractContacts pulls visible phone, email and room-count hints out of
// page HTML. It always runs and never fails the unit: a parse failure just
// yields an empty Contact.
func ExtractContacts(htmlStr string) models.Contact {
	var c models.Contact

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err == nil {
		// tel:/mailto: links are the most reliable source.
		doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			c.Phone = cleanPhone(strings.TrimPrefix(href, "tel:"))
			return c.Phone == ""
		})
		doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Attr("href")
			addr := strings.TrimPrefix(href, "mailto:")
			if idx := strings.IndexByte(addr, '?'); idx >= 0 {
				addr = addr[:idx]
			}
			if reEmail.MatchString(addr) {
				c.Email = strings.TrimSpace(addr)
			}
			return c.Email == ""
		})
	}

	text := htmlStr
	if doc != nil {
		text = doc.Text()
	}

	if c.Phone == "" {
		if m := rePhone.FindString(text); m != "" {
			c.Phone = cleanPhone(m)
		}
	}
	if c.Email == "" {
		for _, m := range reEmail.FindAllString(text, 10) {
			if !reAssetEmail.MatchString(m) {
				c.Email = m
				break
			}
		}
	}
	if m := reRooms.FindStringSubmatch(text); m != nil {
		c.RoomCountHint = m[1]
	}

	return c
}

func cleanPhone(s string) string {
	s = strings.TrimSpace(s)
	// Keep digits, plus sign and common separators; drop URL encoding noise.
	s = strings.ReplaceAll(s, "%20", " ")
	return strings.TrimSpace(s)
}
