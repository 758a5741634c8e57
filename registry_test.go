package quill_test

import (
	"testing"

	"github.com/zoobzio/quill"
)

type CacheTestUser struct {
	Name string `quill:"name"`
}

func TestUse_Caching(t *testing.T) {
	quill.Reset() // Clear cache

	s1, err := quill.Use[CacheTestUser]()
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}

	s2, err := quill.Use[CacheTestUser]()
	if err != nil {
		t.Fatalf("Use() error: %v", err)
	}

	if s1 != s2 {
		t.Error("Use() should return cached processor")
	}
}

func TestUse_DifferentTypes(t *testing.T) {
	quill.Reset()

	users, _ := quill.Use[CacheTestUser]()
	lists, _ := quill.Use[[]CacheTestUser]()

	if users == nil || lists == nil {
		t.Fatal("Use() returned nil")
	}
	if users.ContentType() != lists.ContentType() {
		t.Error("processors should share the content type")
	}
}

func TestReset(t *testing.T) {
	s1, _ := quill.Use[CacheTestUser]()

	quill.Reset()

	s2, _ := quill.Use[CacheTestUser]()

	if s1 == s2 {
		t.Error("Reset() should clear cache, new processor expected")
	}
}
