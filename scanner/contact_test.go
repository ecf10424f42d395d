package scanner

import "testing"

func TestExtractContacts_TelMailtoLinks(t *testing.T) {
	html := `<html><body>
		<a href="tel:+1-503-555-0188">Call us</a>
		<a href="mailto:stay@seaviewinn.example?subject=Booking">Email</a>
	</body></html>`

	c := ExtractContacts(html)
	if c.Phone != "+1-503-555-0188" {
		t.Errorf("phone = %q", c.Phone)
	}
	if c.Email != "stay@seaviewinn.example" {
		t.Errorf("email = %q", c.Email)
	}
}

func TestExtractContacts_BodyText(t *testing.T) {
	html := `<html><body>
		<p>Call (503) 555-0188 or write to frontdesk@harborhouse.example.</p>
		<p>Our inn offers 12 guest rooms across two buildings.</p>
	</body></html>`

	c := ExtractContacts(html)
	if c.Phone == "" {
		t.Error("phone not extracted from body text")
	}
	if c.Email != "frontdesk@harborhouse.example" {
		t.Errorf("email = %q", c.Email)
	}
	if c.RoomCountHint != "12" {
		t.Errorf("room count hint = %q", c.RoomCountHint)
	}
}

func TestExtractContacts_IgnoresAssetNames(t *testing.T) {
	html := `<html><body><img src="hero@2x.jpg"><p>No contacts here.</p></body></html>`
	c := ExtractContacts(html)
	if c.Email != "" {
		t.Errorf("asset filename mistaken for email: %q", c.Email)
	}
}

func TestExtractContacts_EmptyAndBroken(t *testing.T) {
	for _, html := range []string{"", "<not<valid<html", "<html><body></body></html>"} {
		c := ExtractContacts(html)
		if c.Phone != "" || c.Email != "" || c.RoomCountHint != "" {
			t.Errorf("expected empty contact for %q, got %+v", html, c)
		}
	}
}

func TestExtractContacts_RoomCountVariants(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"<p>We have 8 suites available.</p>", "8"},
		{"<p>Choose from 24 rooms.</p>", "24"},
		{"<p>Five cottages by the lake.</p>", ""}, // spelled-out numbers are not hints
	}
	for _, tt := range tests {
		c := ExtractContacts("<html><body>" + tt.text + "</body></html>")
		if c.RoomCountHint != tt.want {
			t.Errorf("%q: hint = %q, want %q", tt.text, c.RoomCountHint, tt.want)
		}
	}
}
