package simhash

import "testing"

func TestFingerprint_SameTemplateDifferentText(t *testing.T) {
	html1 := `<html><head><title>Seaview Inn</title></head><body><div><h1>Welcome</h1><p>Oceanfront rooms</p></div></body></html>`
	html2 := `<html><head><title>Harbor House</title></head><body><div><h1>Hello</h1><p>Downtown suites</p></div></body></html>`

	fp1 := Fingerprint(html1)
	fp2 := Fingerprint(html2)
	if fp1 != fp2 {
		t.Errorf("same DOM structure should fingerprint identically, distance %d", Distance(fp1, fp2))
	}
}

func TestFingerprint_DifferentTemplates(t *testing.T) {
	html1 := `<html><body><div><h1>Title</h1><p>Text</p><p>More</p></div></body></html>`
	html2 := `<html><body><table><tr><td>A</td><td>B</td></tr><tr><td>C</td><td>D</td></tr></table></body></html>`

	dist := Distance(Fingerprint(html1), Fingerprint(html2))
	if dist < 3 {
		t.Errorf("different structures too close: distance %d", dist)
	}
}

func TestFingerprint_Empty(t *testing.T) {
	if fp := Fingerprint(""); fp != 0 {
		t.Errorf("empty input should produce 0, got %064b", fp)
	}
	if fp := Fingerprint("plain text, no tags"); fp != 0 {
		t.Errorf("tagless input should produce 0, got %064b", fp)
	}
}

func TestFingerprint_TinyDocument(t *testing.T) {
	fp := Fingerprint("<br/>")
	if fp == 0 {
		t.Error("single tag should produce a non-zero fingerprint")
	}
	if fp != Fingerprint("<br/>") {
		t.Error("fingerprint must be deterministic")
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	a := Fingerprint(`<html><body><div><p>x</p></div></body></html>`)
	if !Similar(a, a, 0) {
		t.Error("identical fingerprints must be similar at threshold 0")
	}

	b := Fingerprint(`<html><body><ul><li>1</li><li>2</li><li>3</li></ul><form><input/></form></body></html>`)
	dist := Distance(a, b)
	if dist > 0 && Similar(a, b, dist-1) {
		t.Errorf("should not be similar below actual distance %d", dist)
	}
	if !Similar(a, b, dist) {
		t.Errorf("should be similar at threshold equal to distance %d", dist)
	}
}

func TestShingle(t *testing.T) {
	got := shingle([]string{"a", "b", "c", "d"}, 3)
	want := []string{"a_b_c", "b_c_d"}
	if len(got) != len(want) {
		t.Fatalf("shingles = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("shingle[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s := shingle([]string{"a"}, 3); s != nil {
		t.Errorf("expected nil for short input, got %v", s)
	}
}
