package cache

import (
	"fmt"
	"testing"

	"github.com/roomsage/bookscan/models"
	"github.com/roomsage/bookscan/simhash"
)

func TestGetSet(t *testing.T) {
	c := New(10)
	key := Key("https://seaviewinn.example", "builtin-2026.08")

	if _, ok := c.Get(key); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	out := &models.DetectionOutcome{SiteID: "s1", EngineName: "Cloudbeds", Method: models.MethodStaticHTML}
	c.Set(key, out, 0)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.EngineName != "Cloudbeds" {
		t.Errorf("engine = %q", got.EngineName)
	}
}

func TestKey_RegistryVersionSeparates(t *testing.T) {
	a := Key("https://x.example", "v1")
	b := Key("https://x.example", "v2")
	if a == b {
		t.Error("different registry versions must produce different keys")
	}
}

func TestCapacityEviction(t *testing.T) {
	c := New(3)
	for i := 0; i < 5; i++ {
		c.Set(Key(fmt.Sprintf("https://site%d.example", i), "v1"), &models.DetectionOutcome{SiteID: fmt.Sprint(i)}, 0)
	}
	if c.Len() > 3 {
		t.Errorf("cache grew past capacity: %d", c.Len())
	}
}

func TestFindByFingerprint(t *testing.T) {
	c := New(10)
	fp := simhash.Fingerprint(`<html><body><div><h1>x</h1><p>y</p></div></body></html>`)
	c.Set(Key("https://www.seaviewinn.example", "v1"), &models.DetectionOutcome{SiteID: "s1", EngineName: "Mews"}, fp)

	// Same template, different text: near-identical fingerprint.
	dup := simhash.Fingerprint(`<html><body><div><h1>a</h1><p>b</p></div></body></html>`)
	got, ok := c.FindByFingerprint(dup, 3, simhash.Distance)
	if !ok {
		t.Fatal("expected duplicate collapse hit")
	}
	if got.EngineName != "Mews" {
		t.Errorf("engine = %q", got.EngineName)
	}

	// Zero fingerprints never match anything.
	if _, ok := c.FindByFingerprint(0, 64, simhash.Distance); ok {
		t.Error("zero fingerprint must not match")
	}
}
