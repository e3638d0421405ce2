package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("disk I/O error")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: cause, want: ""},
		{name: "direct", err: New(KindValidation, "url is required"), want: KindValidation},
		{name: "wrapped cause", err: Wrap(KindStorage, "insert bookmark", cause), want: KindStorage},
		{name: "wrapped by fmt", err: fmt.Errorf("add: %w", New(KindNotFound, "bookmark 3")), want: KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("constraint failed")
	err := Wrap(KindStorage, "update category", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is() lost the cause: %v", err)
	}
	if !Is(err, KindStorage) {
		t.Errorf("Is(KindStorage) = false, want true")
	}
	if Is(err, KindValidation) {
		t.Errorf("Is(KindValidation) = true, want false")
	}
	if Wrap(KindStorage, "noop", nil) != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Newf(KindImportFormat, "bookmark %d is missing a url", 2)
	if got, want := err.Error(), "import_format: bookmark 2 is missing a url"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
