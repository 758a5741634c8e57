package quill

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// SimpleUser has plain fields only.
type SimpleUser struct {
	ID   string `quill:"id"`
	Name string `quill:"name"`
}

// ProfileUser nests optional and collection fields.
type ProfileUser struct {
	ID      string            `quill:"id"`
	Email   *string           `quill:"email"`
	Roles   []string          `quill:"roles"`
	Labels  map[string]string `quill:"labels,optional"`
	Profile Value             `quill:"profile,optional"`
}

type DupUser struct {
	A string `quill:"id"`
	B string `quill:"id"`
}

func TestNewProcessor(t *testing.T) {
	proc, err := NewProcessor[SimpleUser]()
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	if proc == nil {
		t.Fatal("NewProcessor() returned nil")
	}
	if proc.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q", proc.ContentType())
	}
	if !strings.Contains(proc.typeName, "SimpleUser") {
		t.Errorf("typeName = %q, want SimpleUser", proc.typeName)
	}
}

func TestNewProcessor_NonStruct(t *testing.T) {
	proc, err := NewProcessor[[]int]()
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}
	if proc.typeName != "[]int" {
		t.Errorf("typeName = %q, want []int", proc.typeName)
	}
}

func TestNewProcessor_InvalidLayout(t *testing.T) {
	if _, err := NewProcessor[DupUser](); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("NewProcessor() error = %v, want ErrUnsupportedType", err)
	}
}

func TestProcessor_EncodeDecode(t *testing.T) {
	proc, _ := NewProcessor[ProfileUser]()
	email := "alice@example.com"

	user := &ProfileUser{
		ID:      "123",
		Email:   &email,
		Roles:   []string{"admin", "ops"},
		Labels:  map[string]string{"tier": "gold", "region": "eu"},
		Profile: MapOf(Pair("age", Int(30))),
	}

	data, err := proc.Encode(context.Background(), user)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := strings.Join([]string{
		"---",
		"id: \"123\"",
		"email: alice@example.com",
		"roles: ",
		"  - admin",
		"  - ops",
		"labels: ",
		"  region: eu",
		"  tier: gold",
		"profile: ",
		"  age: 30",
	}, "\n")
	if string(data) != want {
		t.Fatalf("Encode() =\n%s\nwant\n%s", data, want)
	}

	got, err := proc.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.ID != user.ID || *got.Email != email || len(got.Roles) != 2 || got.Labels["tier"] != "gold" {
		t.Errorf("Decode() = %+v", got)
	}
	if !Equal(got.Profile, user.Profile) {
		t.Errorf("Profile = %v, want %v", got.Profile, user.Profile)
	}
}

func TestProcessor_EncodeNil(t *testing.T) {
	proc, _ := NewProcessor[SimpleUser]()

	data, err := proc.Encode(context.Background(), nil)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if string(data) != "---\n~" {
		t.Errorf("Encode(nil) = %q", data)
	}
}

func TestProcessor_DecodeError(t *testing.T) {
	proc, _ := NewProcessor[SimpleUser]()

	_, err := proc.Decode(context.Background(), []byte("id: 1"))
	if !errors.Is(err, ErrDocumentSyntax) {
		t.Errorf("Decode() error = %v, want ErrDocumentSyntax", err)
	}

	_, err = proc.Decode(context.Background(), []byte("---\nname: x"))
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("Decode() error = %v, want ErrMissingField", err)
	}
}

func TestProcessor_Options(t *testing.T) {
	proc, _ := NewProcessor[SimpleUser](WithStrictFields(), WithMaxInputSize(16))

	_, err := proc.Decode(context.Background(), []byte("---\nid: a\nname: b\nextra: c"))
	if !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("Decode() error = %v, want ErrInputTooLarge", err)
	}

	strict, _ := NewProcessor[SimpleUser](WithStrictFields())
	_, err = strict.Decode(context.Background(), []byte("---\nid: a\nname: b\nextra: c"))
	if !errors.Is(err, ErrStructureMismatch) {
		t.Errorf("Decode() error = %v, want ErrStructureMismatch", err)
	}
}

func TestProcessor_CanceledContext(t *testing.T) {
	proc, _ := NewProcessor[SimpleUser]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := proc.Decode(ctx, []byte("---\nid: a\nname: b")); !errors.Is(err, context.Canceled) {
		t.Errorf("Decode() error = %v, want context.Canceled", err)
	}
}
