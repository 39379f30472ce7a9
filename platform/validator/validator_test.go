package validator

import "testing"

type specialtyRequest struct {
	Name        string   `validate:"notblank"`
	Specialties []string `validate:"dive,slug"`
}

func TestCustomTags(t *testing.T) {
	val := New()

	if err := val.Struct(specialtyRequest{Name: "Team jersey", Specialties: []string{"screen_print", "embroidery"}}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if err := val.Struct(specialtyRequest{Name: "   "}); err == nil {
		t.Fatal("expected blank name to fail")
	}
	if err := val.Struct(specialtyRequest{Name: "x", Specialties: []string{"Screen Print"}}); err == nil {
		t.Fatal("expected non-slug specialty to fail")
	}
}
